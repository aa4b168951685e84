// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/proio-org/go-proio"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

func gcsClient(ctx context.Context, credentials []byte) (*storage.Client, error) {
	if len(credentials) == 0 {
		return storage.NewClient(ctx)
	}
	return storage.NewClient(ctx, option.WithCredentialsJSON(credentials))
}

// ListGcsRuns lists the run objects in the bucket under prefix.
func ListGcsRuns(ctx context.Context, bucket, prefix string, credentials []byte) ([]*RunObject, error) {
	client, err := gcsClient(ctx, credentials)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	var runList []*RunObject
	it := client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		objAttrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		runList = append(runList, &RunObject{Name: objAttrs.Name})
	}

	return runList, nil
}

// CreateGcsReader opens a run object for streaming reads. The client
// is held open until the reader closes.
func CreateGcsReader(ctx context.Context, bucket, name string, credentials []byte) (*proio.Reader, error) {
	client, err := gcsClient(ctx, credentials)
	if err != nil {
		return nil, err
	}

	objectReader, err := client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, err
	}
	proioReader := proio.NewReader(objectReader)
	proioReader.DeferUntilClose(func() { objectReader.Close() })
	proioReader.DeferUntilClose(func() { client.Close() })
	return proioReader, nil
}

// CreateGcsWriter opens a run object for streaming writes.
func CreateGcsWriter(ctx context.Context, bucket, name string, credentials []byte) (*proio.Writer, error) {
	client, err := gcsClient(ctx, credentials)
	if err != nil {
		return nil, err
	}

	objectWriter := client.Bucket(bucket).Object(name).NewWriter(ctx)
	proioWriter := proio.NewWriter(objectWriter)
	proioWriter.DeferUntilClose(objectWriter.Close)
	proioWriter.DeferUntilClose(client.Close)
	return proioWriter, nil
}
