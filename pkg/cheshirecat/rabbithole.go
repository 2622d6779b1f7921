package cheshirecat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amoylab/catclient/pkg/models"
)

// RabbitHoleEndpoint ingests documents into the declarative memory.
type RabbitHoleEndpoint struct {
	endpoint
}

// PostFile uploads one document.
func (e *RabbitHoleEndpoint) PostFile(ctx context.Context, file Upload, agentID string, opts *models.UploadOptions) (json.RawMessage, error) {
	f := &form{}
	f.addFile("file", file)
	if err := f.addUploadOptions(opts); err != nil {
		return nil, err
	}
	return e.raw(ctx, request{method: http.MethodPost, path: e.prefix, agentID: agentID, form: f})
}

// PostFiles uploads several documents in one request.
func (e *RabbitHoleEndpoint) PostFiles(ctx context.Context, files []Upload, agentID string, opts *models.UploadOptions) (json.RawMessage, error) {
	if len(files) == 0 {
		return nil, errors.New("no files to upload")
	}
	f := &form{}
	for _, file := range files {
		f.addFile("files", file)
	}
	if err := f.addUploadOptions(opts); err != nil {
		return nil, err
	}
	return e.raw(ctx, request{method: http.MethodPost, path: e.url("/batch"), agentID: agentID, form: f})
}

// PostWeb asks the server to fetch and ingest a web page.
func (e *RabbitHoleEndpoint) PostWeb(ctx context.Context, in models.WebInput, agentID string) (json.RawMessage, error) {
	return e.raw(ctx, request{method: http.MethodPost, path: e.url("/web"), agentID: agentID, body: in})
}

// PostMemory restores a memory export file.
func (e *RabbitHoleEndpoint) PostMemory(ctx context.Context, file Upload, agentID string) (json.RawMessage, error) {
	f := &form{}
	f.addFile("file", file)
	return e.raw(ctx, request{method: http.MethodPost, path: e.url("/memory"), agentID: agentID, form: f})
}

func (e *RabbitHoleEndpoint) GetAllowedMimeTypes(ctx context.Context, agentID string) (*models.AllowedMimeTypesOutput, error) {
	return call[models.AllowedMimeTypesOutput](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.url("/allowed-mimetypes"),
		agentID: agentID,
	})
}

func (e *RabbitHoleEndpoint) raw(ctx context.Context, req request) (json.RawMessage, error) {
	out, err := call[json.RawMessage](ctx, e.c, req)
	if err != nil {
		return nil, err
	}
	return *out, nil
}
