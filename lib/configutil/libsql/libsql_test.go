package configlibsql

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	db, err := Struct{File: path}.OpenDB()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	_, err = db.Exec("create table t (x integer)")
	if err != nil {
		t.Fatal(err)
	}
	require.FileExists(t, path)
}

func TestOpenRequiresTarget(t *testing.T) {
	require.False(t, Struct{}.Enabled())
	_, err := Struct{}.OpenDB()
	require.Error(t, err)
}
