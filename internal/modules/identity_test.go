package modules

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upc/internal/errors"
)

func TestIdentityTable_Lookup(t *testing.T) {
	a := &Module{Name: "A", GUID: "aaaa", Files: []*SourceFile{
		{Path: "/p/A/x.cs", OriginalGUID: "01"},
		{Path: "/p/A/y.cs", OriginalGUID: "02"},
	}}
	b := &Module{Name: "B", GUID: "bbbb", Files: []*SourceFile{
		{Path: "/p/B/z.cs", OriginalGUID: "03"},
	}}

	table, err := NewIdentityTable([]*Module{a, b})
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"01", "02", "03"}, table.GUIDs())

	e, ok := table.Lookup("03")
	require.True(t, ok)
	assert.Same(t, b, e.Module)
	assert.Equal(t, "/p/B/z.cs", e.File.Path)

	_, ok = table.Lookup("04")
	assert.False(t, ok)
}

func TestIdentityTable_Collision(t *testing.T) {
	a := &Module{Name: "A", Files: []*SourceFile{{Path: "/p/A/x.cs", OriginalGUID: "dead"}}}
	b := &Module{Name: "B", Files: []*SourceFile{{Path: "/p/B/y.cs", OriginalGUID: "dead"}}}

	table, err := NewIdentityTable([]*Module{a, b})
	require.Error(t, err)
	assert.Nil(t, table)
	assert.True(t, errors.IsCode(err, errors.IdentityCollision))

	var collision *CollisionError
	require.True(t, stderrors.As(err, &collision))
	assert.Equal(t, "Collision: dead.\nNew: B > /p/B/y.cs\nOld: A > /p/A/x.cs", collision.Error())
}

func TestIdentityTable_Empty(t *testing.T) {
	table, err := NewIdentityTable(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}
