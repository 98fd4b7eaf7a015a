package imgur

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/user/snapbot/internal/repository"
)

// Uploader posts images to the imgur upload API.
type Uploader struct {
	http      *resty.Client
	uploadURL string
	apiKey    string
	logger    *zap.Logger
}

var _ repository.ImageHost = (*Uploader)(nil)

type uploadResponse struct {
	Rsp struct {
		Stat      string `json:"stat"`
		ErrorCode int    `json:"error_code"`
		ErrorMsg  string `json:"error_msg"`
		Image     struct {
			ImgurPage string `json:"imgur_page"`
		} `json:"image"`
	} `json:"rsp"`
}

func NewUploader(uploadURL, apiKey, userAgent string, logger *zap.Logger) *Uploader {
	client := resty.New()
	client.SetTimeout(2 * time.Minute)
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	return &Uploader{
		http:      client,
		uploadURL: uploadURL,
		apiKey:    apiKey,
		logger:    logger,
	}
}

// Upload sends the file at path and returns the image's viewing page.
func (u *Uploader) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", repository.ErrUpload, err)
	}
	defer f.Close()

	res, err := u.http.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{"key": u.apiKey}).
		SetFileReader("image", "snap"+filepath.Ext(path), f).
		Post(u.uploadURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", repository.ErrUpload, err)
	}

	var body uploadResponse
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return "", fmt.Errorf("%w: status %d, undecodable response: %v", repository.ErrUpload, res.StatusCode(), err)
	}
	if body.Rsp.Stat != "ok" {
		return "", &repository.UploadError{Code: body.Rsp.ErrorCode, Message: body.Rsp.ErrorMsg}
	}
	if body.Rsp.Image.ImgurPage == "" {
		return "", fmt.Errorf("%w: response has no image page", repository.ErrUpload)
	}

	u.logger.Debug("uploaded image", zap.String("file", path), zap.String("page", body.Rsp.Image.ImgurPage))
	return body.Rsp.Image.ImgurPage, nil
}
