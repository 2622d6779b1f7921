package cheshirecat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"

	"github.com/amoylab/catclient/pkg/models"
)

const octetStream = "application/octet-stream"

// Upload is one file sent in a multipart request.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// UploadFromPath reads a file from disk. The content type is guessed from the
// extension.
func UploadFromPath(path string) (Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, err
	}
	return Upload{
		Name:        filepath.Base(path),
		ContentType: contentTypeOf(path),
		Body:        bytes.NewReader(data),
	}, nil
}

func contentTypeOf(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return octetStream
}

type formFile struct {
	field  string
	upload Upload
}

type form struct {
	files  []formFile
	fields [][2]string
}

func (f *form) addFile(field string, u Upload) {
	f.files = append(f.files, formFile{field: field, upload: u})
}

func (f *form) addField(name, value string) {
	f.fields = append(f.fields, [2]string{name, value})
}

// addUploadOptions appends chunk_size, chunk_overlap and metadata when set.
func (f *form) addUploadOptions(opts *models.UploadOptions) error {
	if opts == nil {
		return nil
	}
	if opts.ChunkSize > 0 {
		f.addField("chunk_size", strconv.Itoa(opts.ChunkSize))
	}
	if opts.ChunkOverlap > 0 {
		f.addField("chunk_overlap", strconv.Itoa(opts.ChunkOverlap))
	}
	if len(opts.Metadata) > 0 {
		md, err := json.Marshal(opts.Metadata)
		if err != nil {
			return err
		}
		f.addField("metadata", string(md))
	}
	return nil
}

func (f *form) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, ff := range f.files {
		if ff.upload.Body == nil {
			return nil, "", fmt.Errorf("upload %q has no body", ff.upload.Name)
		}
		ct := ff.upload.ContentType
		if ct == "" {
			ct = contentTypeOf(ff.upload.Name)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     ff.field,
			"filename": ff.upload.Name,
		}))
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, ff.upload.Body); err != nil {
			return nil, "", err
		}
	}
	for _, kv := range f.fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
