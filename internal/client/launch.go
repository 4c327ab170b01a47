package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bioflow/internal/telemetry"

	"go.uber.org/zap"
)

// Argument is one named value of a job launch request. The concrete variants
// decide how the value travels in the multipart form.
type Argument interface {
	isArgument()
}

// FileInput is a local file uploaded as a named attachment.
type FileInput struct {
	Name string
	Path string
}

// OutputPath names a result destination; it is sent as a plain form field,
// never uploaded.
type OutputPath struct {
	Name string
	Path string
}

// ConfigObject carries step properties; it is serialized to JSON and
// uploaded as field "config" with filename "prop.json".
type ConfigObject struct {
	Properties map[string]any
}

func (FileInput) isArgument()    {}
func (OutputPath) isArgument()   {}
func (ConfigObject) isArgument() {}

// UnexpectedStatusError reports a launch response whose status was not the
// 303 the API uses to hand out a job token.
type UnexpectedStatusError struct {
	Status int
	Body   []byte
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("job not accepted: remote API returned status %d", e.Status)
}

// ClassifyArgs converts a loosely-typed name/value map into tagged launch
// arguments, using the naming convention of the remote API:
//
//   - string values named input* are file uploads
//   - string values named output* are destination path form fields
//   - any other string naming an existing local file is a file upload
//   - map values are the step configuration object
//
// Values matching none of the rules are dropped. Names are processed in
// sorted order so the result is deterministic.
func ClassifyArgs(args map[string]any) []Argument {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Argument
	for _, name := range names {
		switch v := args[name].(type) {
		case string:
			switch {
			case strings.HasPrefix(name, "input"):
				out = append(out, FileInput{Name: name, Path: v})
			case strings.HasPrefix(name, "output"):
				out = append(out, OutputPath{Name: name, Path: v})
			case isRegularFile(v):
				out = append(out, FileInput{Name: name, Path: v})
			}
		case map[string]any:
			out = append(out, ConfigObject{Properties: v})
		}
	}
	return out
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Launch submits a job to launchURL as a multipart POST and returns the
// continuation token the API hands out with its 303 response. Any other
// status yields an *UnexpectedStatusError alongside the raw response.
func (c *Client) Launch(ctx context.Context, launchURL string, args []Argument) (string, *Response, error) {
	fields := map[string]string{}
	var files []FileField
	var closers []*os.File
	defer func() {
		for _, f := range closers {
			f.Close()
		}
	}()

	for _, arg := range args {
		switch a := arg.(type) {
		case FileInput:
			f, err := os.Open(a.Path)
			if err != nil {
				c.countLaunch("failed")
				return "", nil, fmt.Errorf("failed to open input file %q: %w", a.Path, err)
			}
			closers = append(closers, f)
			files = append(files, FileField{Field: a.Name, Filename: filepath.Base(a.Path), Reader: f})
		case OutputPath:
			fields[a.Name] = a.Path
		case ConfigObject:
			props, err := json.Marshal(a.Properties)
			if err != nil {
				c.countLaunch("failed")
				return "", nil, fmt.Errorf("failed to encode config properties: %w", err)
			}
			files = append(files, FileField{Field: "config", Filename: "prop.json", Reader: bytes.NewReader(props)})
		}
	}

	resp, err := c.Post(ctx, launchURL, fields, files)
	if err != nil {
		c.countLaunch("failed")
		return "", nil, err
	}

	telemetry.Logger.Info("Launch response",
		zap.String("url", launchURL),
		zap.Int("status", resp.Status),
		zap.ByteString("body", resp.Body),
	)

	if resp.Status != http.StatusSeeOther {
		c.countLaunch("rejected")
		return "", resp, &UnexpectedStatusError{Status: resp.Status, Body: resp.Body}
	}

	var accepted struct {
		Token string `json:"token"`
	}
	if err := resp.Decode(&accepted); err != nil {
		c.countLaunch("failed")
		return "", resp, fmt.Errorf("failed to decode launch response: %w", err)
	}
	if accepted.Token == "" {
		c.countLaunch("failed")
		return "", resp, fmt.Errorf("launch response carried no token")
	}

	c.countLaunch("success")
	return accepted.Token, resp, nil
}

func (c *Client) countLaunch(outcome string) {
	if c.metrics != nil {
		c.metrics.IncrementLaunchCounter(outcome)
	}
}
