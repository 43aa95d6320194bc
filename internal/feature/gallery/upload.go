package gallery

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wylm-portal/internal/transport/http/ez"
	mdw "wylm-portal/internal/transport/http/middleware"
)

const (
	maxUploadFiles = 9
	maxPhotoBytes  = 10 << 20
)

type uploadedFile struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

func (m *Module) upload(c *gin.Context, files []*multipart.FileHeader) (any, error) {
	if m.store == nil {
		return nil, &ez.AErr{Status: http.StatusServiceUnavailable, Msg: "object storage not configured"}
	}
	if len(files) > maxUploadFiles {
		return nil, ez.BadRequest(fmt.Sprintf("at most %d files per upload", maxUploadFiles))
	}
	// 先整体校验，避免传了一半才失败
	for _, fh := range files {
		if fh.Size > maxPhotoBytes {
			return nil, ez.BadRequest(fh.Filename + " exceeds 10MB")
		}
		if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
			return nil, ez.BadRequest(fh.Filename + " is not an image")
		}
	}

	out := make([]uploadedFile, 0, len(files))
	for _, fh := range files {
		url, err := m.put(c, fh)
		if err != nil {
			return nil, ez.Internal("upload "+fh.Filename, err)
		}
		out = append(out, uploadedFile{URL: url, Filename: fh.Filename, Size: fh.Size})
	}
	m.log.Info("photos uploaded", zap.Int("count", len(out)), zap.String("by", mdw.UserID(c)))
	return out, nil
}

func (m *Module) put(c *gin.Context, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return m.store.Put(c.Request.Context(), "photos", fh.Filename, f, fh.Size, fh.Header.Get("Content-Type"))
}
