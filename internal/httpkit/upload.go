package httpkit

import (
	stderrors "errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"audiowave/internal/models"
	"audiowave/internal/pkg/errors"
)

// AudioField is the multipart field carrying the audio file.
const AudioField = "audio"

// DecodeAudioUpload streams the "audio" part of a multipart request into a
// temp file under dir. The returned cleanup removes that file; it is a no-op
// when an error is returned. Malformed or oversized requests are coded
// errors.CodeDecode.
func DecodeAudioUpload(w http.ResponseWriter, r *http.Request, dir string, maxBytes int64) (models.AudioSubmission, func(), error) {
	noop := func() {}
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return models.AudioSubmission{}, noop, errors.Decode(err, "request must be multipart/form-data")
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return models.AudioSubmission{}, noop, errors.Decode(nil, "missing \"audio\" file field")
		}
		if err != nil {
			return models.AudioSubmission{}, noop, decodeErr(err)
		}
		if part.FormName() != AudioField {
			part.Close()
			continue
		}

		name := filepath.Base(strings.ReplaceAll(part.FileName(), `\`, "/"))
		if name == "" || name == "." || name == "/" {
			part.Close()
			return models.AudioSubmission{}, noop, errors.Decode(nil, "\"audio\" field is not a file")
		}

		path, err := saveTemp(part, dir, filepath.Ext(name))
		part.Close()
		if err != nil {
			return models.AudioSubmission{}, noop, err
		}
		return models.AudioSubmission{SourcePath: path, OriginalFileName: name}, func() { os.Remove(path) }, nil
	}
}

func saveTemp(src io.Reader, dir, ext string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "submission.decode", "failed to create uploads directory")
	}
	f, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return "", errors.Wrap(err, "submission.decode", "failed to create temp file")
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = errors.Decode(nil, "\"audio\" file is empty")
	}
	if err != nil {
		os.Remove(f.Name())
		return "", decodeErr(err)
	}
	return f.Name(), nil
}

func decodeErr(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case stderrors.As(err, &tooLarge):
		return errors.Decode(err, "upload exceeds the size limit").WithField("limit_bytes", tooLarge.Limit)
	case errors.IsCode(err, errors.CodeDecode):
		return err
	}
	return errors.Decode(err, "malformed multipart body")
}
