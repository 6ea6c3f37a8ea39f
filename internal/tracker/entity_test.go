package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCallsign(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "already normalized", in: "ABC123", want: "ABC123"},
		{name: "lowercase", in: "abc123", want: "ABC123"},
		{name: "separators stripped", in: "eddf_twr", want: "EDDFTWR"},
		{name: "hyphen stripped", in: "EDDF-GND", want: "EDDFGND"},
		{name: "whitespace stripped", in: " DLH 4 ", want: "DLH4"},
		{name: "empty", in: "", want: ""},
		{name: "only separators", in: "_-_", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCallsign(tt.in))
		})
	}
}

func TestSameEntity(t *testing.T) {
	a := &ControlStation{NetworkIdentity: NetworkIdentity{ID: 1, Callsign: "EDDF_TWR"}}
	b := &ControlStation{NetworkIdentity: NetworkIdentity{ID: 1, Callsign: "OTHER"}}
	c := &ControlStation{NetworkIdentity: NetworkIdentity{Callsign: "eddf-twr"}}
	d := &ControlStation{NetworkIdentity: NetworkIdentity{ID: 2, Callsign: "EDDM_TWR"}}

	// Same non-zero object id
	assert.True(t, SameEntity(a, b))

	// Same normalized callsign despite different separators and case
	assert.True(t, SameEntity(a, c))

	assert.False(t, SameEntity(a, d))

	// Two identityless entities with different callsigns
	e := &ControlStation{NetworkIdentity: NetworkIdentity{Callsign: "X"}}
	f := &ControlStation{NetworkIdentity: NetworkIdentity{Callsign: "Y"}}
	assert.False(t, SameEntity(e, f))
}

func TestIdentityRegistry(t *testing.T) {
	r := NewIdentityRegistry()

	id1 := r.Allocate()
	id2 := r.Allocate()
	assert.NotEqual(t, id1, id2)
	assert.Greater(t, id1, int64(0))

	st := &ControlStation{NetworkIdentity: NetworkIdentity{ID: id1, Callsign: "EDDF_TWR"}}
	r.Register(st)
	assert.Equal(t, 1, r.Count())

	got, ok := r.Lookup(id1)
	assert.True(t, ok)
	assert.Same(t, st, got)

	r.Unregister(id1)
	assert.Equal(t, 0, r.Count())
	_, ok = r.Lookup(id1)
	assert.False(t, ok)

	// Identifiers are never reused after unregistration
	id3 := r.Allocate()
	assert.Greater(t, id3, id2)
}
