// Package images uploads product photos to Cloudinary. The interface
// exists so handlers can be exercised without the hosted service.
package images

import (
	"context"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinary builds an uploader from a cloudinary:// URL.
func NewCloudinary(cloudinaryURL, folder string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, err
	}
	return &CloudinaryUploader{cld: cld, folder: folder}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	resp, err := u.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:   u.folder,
		PublicID: name,
	})
	if err != nil {
		return "", err
	}
	return resp.SecureURL, nil
}
