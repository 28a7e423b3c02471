package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoffeeLeafClasses(t *testing.T) {
	assert.Equal(t, 4, CoffeeLeafClasses.Len())
	assert.Equal(t, []string{"Rust", "Sooty Mold", "Abiotic", "Cercospora"}, CoffeeLeafClasses.Names())

	name, err := CoffeeLeafClasses.GetName(1)
	require.NoError(t, err)
	assert.Equal(t, "Sooty Mold", name)

	idx, err := CoffeeLeafClasses.GetIndex("Cercospora")
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	_, err = CoffeeLeafClasses.GetName(4)
	assert.Error(t, err)
	_, err = CoffeeLeafClasses.GetIndex("Leaf Miner")
	assert.Error(t, err)
}

func TestNewOutputClassSet(t *testing.T) {
	tests := []struct {
		name    string
		classes []string
		wantErr bool
	}{
		{name: "valid", classes: []string{"a", "b"}},
		{name: "empty", classes: nil, wantErr: true},
		{name: "blank", classes: []string{"a", ""}, wantErr: true},
		{name: "duplicate", classes: []string{"a", "a"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := NewOutputClassSet("test", "v0", tt.classes...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.classes), set.Len())
		})
	}

	assert.Panics(t, func() { MustOutputClassSet("bad", "v0") })
}
