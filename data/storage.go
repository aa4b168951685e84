// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/rditech/scope-live/model/scope"

	"github.com/proio-org/go-proio"
)

type RunObject struct {
	Name string
}

// ListResourceRuns enumerates run files under the resource URL.
// Supported schemes are file:// and gs://.
func ListResourceRuns(ctx context.Context, urlString, credentials string) (runs []*RunObject, err error) {
	var thisUrl *url.URL
	thisUrl, err = url.Parse(urlString)
	if err != nil {
		return
	}

	switch thisUrl.Scheme {
	case "gs":
		runs, err = ListGcsRuns(
			ctx,
			thisUrl.Host,
			strings.TrimLeft(thisUrl.Path, "/"),
			[]byte(credentials),
		)
	case "file":
		var files []string
		files, err = filepath.Glob(fmt.Sprintf("%v/%v/*.proio", thisUrl.Host, strings.TrimLeft(thisUrl.Path, "/")))
		for _, file := range files {
			runs = append(runs, &RunObject{Name: path.Base(file)})
		}
	default:
		err = errors.New("bad url scheme")
	}
	return
}

// GetReader opens a run for reading from a file:// or gs:// URL.
func GetReader(ctx context.Context, urlString, credentials string) (reader *proio.Reader, err error) {
	var thisUrl *url.URL
	thisUrl, err = url.Parse(urlString)
	if err != nil {
		return
	}

	switch thisUrl.Scheme {
	case "gs":
		reader, err = CreateGcsReader(
			ctx,
			thisUrl.Host,
			strings.TrimLeft(thisUrl.Path, "/"),
			[]byte(credentials),
		)
	case "file":
		reader, err = proio.Open(filepath.Clean(fmt.Sprintf("%v/%v", thisUrl.Host, strings.TrimLeft(thisUrl.Path, "/"))))
	default:
		err = errors.New("bad url scheme")
	}
	return
}

// GetWriter opens a run for writing to a file:// or gs:// URL.
func GetWriter(ctx context.Context, urlString, credentials string) (writer *proio.Writer, err error) {
	var thisUrl *url.URL
	thisUrl, err = url.Parse(urlString)
	if err != nil {
		return
	}

	switch thisUrl.Scheme {
	case "gs":
		writer, err = CreateGcsWriter(
			ctx,
			thisUrl.Host,
			strings.TrimLeft(thisUrl.Path, "/"),
			[]byte(credentials),
		)
	case "file":
		writer, err = proio.Create(filepath.Clean(fmt.Sprintf("%v/%v", thisUrl.Host, thisUrl.Path)))
	default:
		err = errors.New("bad url scheme")
	}

	return
}

// SaveFrame writes a single reference frame (dark, static, or a saved
// capture) as a one-event run at the URL.
func SaveFrame(ctx context.Context, urlString, credentials string, frame *scope.Frame) error {
	writer, err := GetWriter(ctx, urlString, credentials)
	if err != nil {
		return err
	}
	if err := writer.Push(FrameToEvent(frame)); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

// LoadFrame reads a single reference frame saved with SaveFrame.
func LoadFrame(ctx context.Context, urlString, credentials string) (*scope.Frame, error) {
	reader, err := GetReader(ctx, urlString, credentials)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	event := reader.Next()
	if event == nil {
		if reader.Err != nil && reader.Err != io.EOF {
			return nil, reader.Err
		}
		return nil, errors.New("run is empty")
	}
	return FrameFromEvent(event)
}
