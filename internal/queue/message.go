package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/urbanair/aqkg/pkg/common"
)

// MergeMsg asks the worker to merge one incoming fragment into a base
// document.
//
// The incoming fragment is either inline (Fragment) or stored at Location.
// Base is the location of the base document; a missing document is an
// empty fragment. The result is written to Output, or back to Base when
// Output is empty. A missing Threshold uses the worker default; 0 is a
// valid threshold that matches every entity against its best candidate.
type MergeMsg struct {
	Location  string          `json:"location,omitempty"`
	Fragment  json.RawMessage `json:"fragment,omitempty"`
	Base      string          `json:"base"`
	Output    string          `json:"output,omitempty"`
	Threshold *int            `json:"threshold,omitempty"`
	Import    bool            `json:"import,omitempty"`
}

// ErrInvalidMessage marks a merge job that can never succeed. Such jobs go
// to the dead letter queue without retries.
var ErrInvalidMessage = errors.New("invalid merge message")

// DecodeMergeMsg parses and checks a merge job.
func DecodeMergeMsg(body []byte) (*MergeMsg, error) {
	var msg MergeMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	hasInline := len(msg.Fragment) > 0 && string(msg.Fragment) != "null"
	if (msg.Location == "") == !hasInline {
		return nil, fmt.Errorf("%w: needs exactly one of location and fragment", ErrInvalidMessage)
	}
	if msg.Base == "" {
		return nil, fmt.Errorf("%w: no base", ErrInvalidMessage)
	}
	if t := msg.Threshold; t != nil && (*t < 0 || *t > 100) {
		return nil, fmt.Errorf("%w: threshold must be between 0 and 100, got %d", ErrInvalidMessage, *t)
	}
	return &msg, nil
}

// OutputLocation is where the merged document is written.
func (m *MergeMsg) OutputLocation() string {
	if m.Output != "" {
		return m.Output
	}
	return m.Base
}

// InlineFragment decodes the inline fragment, or returns nil when the
// message points to a location.
func (m *MergeMsg) InlineFragment() (*common.Fragment, error) {
	if m.Location != "" {
		return nil, nil
	}
	return common.Decode(m.Fragment)
}
