// Package models - Class catalogs and model configuration.
package models

import "fmt"

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int `json:"index" yaml:"index"`
	// The human-readable label.
	Name string `json:"name" yaml:"name"`
}

// OutputClassSet is the ordered list of labels a model was trained with. The
// position of a class is the class-score slot it occupies in an output row.
type OutputClassSet struct {
	// Class set identifier.
	Name string `json:"name" yaml:"name"`
	// Version of the label list; bump it together with the model artifact.
	Version string `json:"version" yaml:"version"`
	// Classes that are supported and mappable.
	Classes []OutputClass `json:"classes" yaml:"classes"`
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// NewOutputClassSet builds a class set from names in model slot order.
//
// Arguments:
//   - name: The class set identifier.
//   - version: The label list version.
//   - names: The class names, index i naming slot i.
//
// Returns:
//   - *OutputClassSet: The class set.
//   - error: An error if the list is empty or contains blank or duplicate names.
func NewOutputClassSet(name, version string, names ...string) (*OutputClassSet, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("class set %q has no classes", name)
	}
	set := &OutputClassSet{Name: name, Version: version, Classes: make([]OutputClass, len(names))}
	for i, n := range names {
		if n == "" {
			return nil, fmt.Errorf("class set %q: empty name at index %d", name, i)
		}
		set.Classes[i] = OutputClass{Index: i, Name: n}
	}
	set.BuildNameIndexMap()
	if len(set.nameToIdx) != len(names) {
		return nil, fmt.Errorf("class set %q contains duplicate names", name)
	}
	return set, nil
}

// MustOutputClassSet is like NewOutputClassSet but panics on error.
func MustOutputClassSet(name, version string, names ...string) *OutputClassSet {
	set, err := NewOutputClassSet(name, version, names...)
	if err != nil {
		panic(err)
	}
	return set
}

// BuildNameIndexMap builds or rebuilds the name->index map.
func (s *OutputClassSet) BuildNameIndexMap() {
	s.nameToIdx = make(map[string]int, len(s.Classes))
	for _, c := range s.Classes {
		s.nameToIdx[c.Name] = c.Index
	}
}

// Len returns the number of classes.
func (s *OutputClassSet) Len() int {
	return len(s.Classes)
}

// Names returns the class names in slot order.
func (s *OutputClassSet) Names() []string {
	names := make([]string, len(s.Classes))
	for i, c := range s.Classes {
		names[i] = c.Name
	}
	return names
}

// GetName returns the class name for a given index.
func (s *OutputClassSet) GetName(idx int) (string, error) {
	if idx < 0 || idx >= len(s.Classes) {
		return "", fmt.Errorf("index %d out of range for class set %q", idx, s.Name)
	}
	return s.Classes[idx].Name, nil
}

// GetIndex returns the class index for a given name.
func (s *OutputClassSet) GetIndex(name string) (int, error) {
	if s.nameToIdx == nil {
		s.BuildNameIndexMap()
	}
	idx, ok := s.nameToIdx[name]
	if !ok {
		return -1, fmt.Errorf("name %q not found in class set %q", name, s.Name)
	}
	return idx, nil
}

// CoffeeLeafClasses are the coffee leaf conditions the detection model reports.
var CoffeeLeafClasses = MustOutputClassSet("coffee-leaf", "v1",
	"Rust",
	"Sooty Mold",
	"Abiotic",
	"Cercospora",
)
