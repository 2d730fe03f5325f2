package ir

// AnnotationGate marks a concept whose actions may complete asynchronously.
const AnnotationGate = "@gate"

// ActionSig is an action signature from a concept manifest. The engine only
// needs names to validate sync references; params and variants are carried
// through but not interpreted.
type ActionSig struct {
	Name     string   `json:"name"`
	Params   []string `json:"params,omitempty"`
	Variants []string `json:"variants,omitempty"`
}

// ConceptManifest describes one concept as consumed from an external
// compiler: its URI, annotations, and action signatures.
type ConceptManifest struct {
	Name        string      `json:"name"`
	URI         string      `json:"uri"`
	Annotations []string    `json:"annotations,omitempty"`
	Actions     []ActionSig `json:"actions"`
}

// HasAction reports whether the manifest declares the named action.
func (m ConceptManifest) HasAction(name string) bool {
	for _, a := range m.Actions {
		if a.Name == name {
			return true
		}
	}
	return false
}

// HasAnnotation reports whether the manifest carries the given annotation.
func (m ConceptManifest) HasAnnotation(ann string) bool {
	for _, a := range m.Annotations {
		if a == ann {
			return true
		}
	}
	return false
}
