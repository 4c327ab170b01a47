package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLaunchReturnsTokenOn303(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
		w.Write([]byte(`{"token":"abc123","message":"job accepted"}`))
	}))
	defer server.Close()

	c := New(server.URL, nil)
	token, resp, err := c.Launch(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
	assert.Equal(t, http.StatusSeeOther, resp.Status)
}

func TestLaunchReturnsNoTokenOnOtherStatus(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusBadRequest, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(`{"message":"nope"}`))
		}))

		c := New(server.URL, nil)
		token, resp, err := c.Launch(context.Background(), server.URL, nil)
		server.Close()

		assert.Empty(t, token)
		require.Error(t, err)

		var statusErr *UnexpectedStatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, status, statusErr.Status)
		assert.Equal(t, status, resp.Status)
	}
}

func TestLaunchUploadsConfigObjectAsPropJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("config")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "prop.json", header.Filename)

		content, err := io.ReadAll(file)
		require.NoError(t, err)

		var props map[string]any
		require.NoError(t, json.Unmarshal(content, &props))
		assert.Equal(t, "all-atoms", props["selection"])

		w.WriteHeader(http.StatusSeeOther)
		w.Write([]byte(`{"token":"tok"}`))
	}))
	defer server.Close()

	c := New(server.URL, nil)
	args := []Argument{ConfigObject{Properties: map[string]any{"selection": "all-atoms"}}}
	token, _, err := c.Launch(context.Background(), server.URL, args)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
}

func TestLaunchUploadsFileInputAndSendsOutputPathAsField(t *testing.T) {
	inputPath := writeTempFile(t, "structure.pdb", "ATOM 1")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		// File upload, not a form field.
		assert.Empty(t, r.FormValue("input_structure"))
		file, header, err := r.FormFile("input_structure")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "structure.pdb", header.Filename)

		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "ATOM 1", string(content))

		// Output path travels as a plain field, never as an attachment.
		assert.Equal(t, "fixed.pdb", r.FormValue("output_pdb_path"))
		_, _, err = r.FormFile("output_pdb_path")
		assert.Error(t, err)

		w.WriteHeader(http.StatusSeeOther)
		w.Write([]byte(`{"token":"tok"}`))
	}))
	defer server.Close()

	c := New(server.URL, nil)
	args := []Argument{
		FileInput{Name: "input_structure", Path: inputPath},
		OutputPath{Name: "output_pdb_path", Path: "fixed.pdb"},
	}
	_, _, err := c.Launch(context.Background(), server.URL, args)
	require.NoError(t, err)
}

func TestLaunchFailsOnMissingInputFile(t *testing.T) {
	c := New("http://unused.example", nil)
	_, _, err := c.Launch(context.Background(), "http://unused.example/launch",
		[]Argument{FileInput{Name: "input_structure", Path: "/does/not/exist.pdb"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open input file")
}

func TestClassifyArgs(t *testing.T) {
	existing := writeTempFile(t, "topology.zip", "zip bytes")

	args := ClassifyArgs(map[string]any{
		"input_structure":   "/some/structure.pdb",
		"output_pdb_path":   "fixed.pdb",
		"topology":          existing,
		"not_a_file":        "/nope/missing.txt",
		"ignored_number":    42,
		"config_properties": map[string]any{"forcefield": "amber99sb-ildn"},
	})

	assert.Equal(t, []Argument{
		ConfigObject{Properties: map[string]any{"forcefield": "amber99sb-ildn"}},
		FileInput{Name: "input_structure", Path: "/some/structure.pdb"},
		OutputPath{Name: "output_pdb_path", Path: "fixed.pdb"},
		FileInput{Name: "topology", Path: existing},
	}, args)
}

func TestClassifyArgsInputPrefixBeatsFileCheck(t *testing.T) {
	// An input-prefixed name is a file upload even if the path does not
	// exist locally yet; the open failure surfaces at launch time.
	args := ClassifyArgs(map[string]any{"input_structure": "/missing/structure.pdb"})
	assert.Equal(t, []Argument{FileInput{Name: "input_structure", Path: "/missing/structure.pdb"}}, args)
}
