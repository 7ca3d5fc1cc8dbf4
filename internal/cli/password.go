package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urbanair/aqkg/internal/config"

	"golang.org/x/term"
)

// promptOut receives interactive prompts so that stdout stays clean for
// command output.
var promptOut io.Writer = os.Stderr

// ensureNeo4jPassword asks for the Neo4j password when the neo4j backend is
// selected without one and stdin is a terminal.
func ensureNeo4jPassword(cfg *config.Config, out io.Writer) error {
	if cfg.Neo4jPassword != "" || (cfg.GraphBackend != "neo4j" && cfg.GraphBackend != "") {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}

	fmt.Fprint(out, "Enter your Neo4j password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	cfg.Neo4jPassword = strings.TrimSpace(string(password))
	return nil
}
