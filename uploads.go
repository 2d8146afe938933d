package main

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/quoting_backend/config"
	"github.com/mmdatafocus/quoting_backend/utils"
)

const maxUploadSizeBytes int64 = 10 * 1024 * 1024
const thumbnailMaxDim = 320

var uploadMimeTypes = map[string]bool{
	"application/pdf":          true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"image/jpeg": true,
	"image/png":  true,
}

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

type uploadResponse struct {
	ObjectKey          string `json:"objectKey"`
	AccessURL          string `json:"accessUrl"`
	ThumbnailObjectKey string `json:"thumbnailObjectKey,omitempty"`
	ThumbnailURL       string `json:"thumbnailUrl,omitempty"`
}

// uploadHandler receives a quote document (spreadsheet, PDF or photo) and
// stores it in GCS under the business prefix. Image uploads get a thumbnail
// for the review screen.
func uploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		businessId, ok := requireBusiness(c)
		if !ok {
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 10MB limit"})
			return
		}

		mimeType := fileHeader.Header.Get("Content-Type")
		if !uploadMimeTypes[mimeType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}
		if int64(len(data)) > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 10MB limit"})
			return
		}

		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		objectKey := fmt.Sprintf("%s/quotes/%s%s", businessId, utils.GenerateUniqueFilename(), ext)

		ctx := c.Request.Context()
		if err := utils.UploadObjectToGCS(ctx, objectKey, mimeType, data); err != nil {
			config.LogError(logger, "uploads.go", "uploadHandler", "upload object", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
			return
		}

		resp := uploadResponse{
			ObjectKey: objectKey,
			AccessURL: utils.ObjectAccessURL(objectKey),
		}

		if imageMimeTypes[mimeType] {
			thumb, err := makeThumbnail(data)
			if err != nil {
				// Not fatal: the original is stored, the review screen just
				// falls back to it.
				config.LogError(logger, "uploads.go", "uploadHandler", "thumbnail", objectKey, err)
			} else {
				thumbKey := strings.TrimSuffix(objectKey, ext) + "_thumb.jpg"
				if err := utils.UploadObjectToGCS(ctx, thumbKey, "image/jpeg", thumb); err != nil {
					config.LogError(logger, "uploads.go", "uploadHandler", "upload thumbnail", thumbKey, err)
				} else {
					resp.ThumbnailObjectKey = thumbKey
					resp.ThumbnailURL = utils.ObjectAccessURL(thumbKey)
				}
			}
		}

		c.JSON(http.StatusOK, resp)
	}
}

func makeThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	thumb := imaging.Fit(img, thumbnailMaxDim, thumbnailMaxDim, imaging.Lanczos)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
