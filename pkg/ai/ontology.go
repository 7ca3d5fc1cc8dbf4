package ai

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Ontology is the subset of a LinkML-style YAML ontology used to guide
// extraction: classes with their attributes, and enumerations with their
// permissible values. Declaration order is kept so the rendered prompt
// follows the ontology file.
type Ontology struct {
	Classes []OntologyClass
	Enums   []OntologyEnum
}

// OntologyClass is one class of the ontology.
type OntologyClass struct {
	Name        string
	Description string
	Attributes  []OntologyAttribute
}

// OntologyAttribute is one attribute of a class.
type OntologyAttribute struct {
	Name        string
	Description string
}

// OntologyEnum is an enumeration and its permissible values.
type OntologyEnum struct {
	Name   string
	Values []string
}

// LoadOntology reads and parses an ontology YAML file.
func LoadOntology(path string) (*Ontology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ontology: %w", err)
	}
	return ParseOntology(data)
}

// ParseOntology parses ontology YAML. Unknown top-level keys are ignored.
func ParseOntology(data []byte) (*Ontology, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse ontology: %w", err)
	}

	o := &Ontology{}
	if len(root.Content) == 0 {
		return o, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse ontology: top level must be a mapping")
	}

	for key, value := range mappingPairs(doc) {
		switch key.Value {
		case "classes":
			for name, body := range mappingPairs(value) {
				class := OntologyClass{Name: name.Value}
				for field, fieldValue := range mappingPairs(body) {
					switch field.Value {
					case "description":
						class.Description = strings.TrimSpace(fieldValue.Value)
					case "attributes":
						for attrName, attrBody := range mappingPairs(fieldValue) {
							attr := OntologyAttribute{Name: attrName.Value}
							for k, v := range mappingPairs(attrBody) {
								if k.Value == "description" {
									attr.Description = strings.TrimSpace(v.Value)
								}
							}
							class.Attributes = append(class.Attributes, attr)
						}
					}
				}
				o.Classes = append(o.Classes, class)
			}
		case "enums":
			for name, body := range mappingPairs(value) {
				enum := OntologyEnum{Name: name.Value}
				for field, fieldValue := range mappingPairs(body) {
					if field.Value != "permissible_values" {
						continue
					}
					for v := range mappingPairs(fieldValue) {
						enum.Values = append(enum.Values, v.Value)
					}
				}
				o.Enums = append(o.Enums, enum)
			}
		}
	}
	return o, nil
}

// mappingPairs iterates the key/value nodes of a mapping node in document
// order. Non-mapping nodes yield nothing.
func mappingPairs(node *yaml.Node) func(yield func(*yaml.Node, *yaml.Node) bool) {
	return func(yield func(*yaml.Node, *yaml.Node) bool) {
		if node == nil || node.Kind != yaml.MappingNode {
			return
		}
		for i := 0; i+1 < len(node.Content); i += 2 {
			if !yield(node.Content[i], node.Content[i+1]) {
				return
			}
		}
	}
}

// Describe renders the ontology as the reference block of the extraction
// prompt.
func (o *Ontology) Describe() string {
	var b strings.Builder
	b.WriteString("**Ontology Reference (entities, attributes, and categories):**\n\n")
	for _, class := range o.Classes {
		fmt.Fprintf(&b, "- **%s**: %s\n", class.Name, class.Description)
		if len(class.Attributes) > 0 {
			b.WriteString("  - Attributes:\n")
			for _, attr := range class.Attributes {
				fmt.Fprintf(&b, "    - %s: %s\n", attr.Name, attr.Description)
			}
		}
	}
	if len(o.Enums) > 0 {
		b.WriteString("\n- **Enumerations:**\n")
		for _, enum := range o.Enums {
			fmt.Fprintf(&b, "  - **%s**: %s\n", enum.Name, strings.Join(enum.Values, ", "))
		}
	}
	return b.String()
}
