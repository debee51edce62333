package classifier

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// UrbanSound6 is the label set the bundled model was trained with. The order
// matches the model's output layer and must not change.
var UrbanSound6 = MustLabelSet(
	"children_playing",
	"dog_barking",
	"drilling",
	"jackhammer",
	"siren",
	"street_music",
)

// LabelSet is an immutable, ordered list of class names. Score i of a model
// output belongs to label i.
type LabelSet struct {
	names []string
}

// NewLabelSet validates names and returns a LabelSet. Names must be unique
// and non-empty.
func NewLabelSet(names ...string) (LabelSet, error) {
	if len(names) == 0 {
		return LabelSet{}, errors.New("classifier: empty label set")
	}
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		if strings.TrimSpace(n) == "" {
			return LabelSet{}, fmt.Errorf("classifier: label %d is empty", i)
		}
		if seen[n] {
			return LabelSet{}, fmt.Errorf("classifier: duplicate label %q", n)
		}
		seen[n] = true
	}
	return LabelSet{names: slices.Clone(names)}, nil
}

// MustLabelSet is like NewLabelSet but panics on invalid input.
func MustLabelSet(names ...string) LabelSet {
	l, err := NewLabelSet(names...)
	if err != nil {
		panic(err)
	}
	return l
}

// Len returns the number of labels.
func (l LabelSet) Len() int { return len(l.names) }

// Name returns the label at index i.
func (l LabelSet) Name(i int) string { return l.names[i] }

// Index returns the position of name, or -1.
func (l LabelSet) Index(name string) int { return slices.Index(l.names, name) }

// Names returns a copy of the labels in order.
func (l LabelSet) Names() []string { return slices.Clone(l.names) }

// Equal reports whether both sets hold the same labels in the same order.
func (l LabelSet) Equal(o LabelSet) bool { return slices.Equal(l.names, o.names) }

func (l LabelSet) String() string { return strings.Join(l.names, ",") }
