package cmd

import (
	"testing"

	"github.com/Zachkp/folio/internal/assets"
	"github.com/Zachkp/folio/internal/config"
)

func TestImageStoreSelection(t *testing.T) {
	cfg := &config.Config{Uploads: config.UploadsConfig{Dir: t.TempDir(), URL: "/uploads"}}
	if _, ok := imageStore(cfg, "projects").(*assets.Bucket); !ok {
		t.Error("expected disk bucket without Cloudinary credentials")
	}

	cfg.Cloudinary = config.CloudinaryConfig{CloudName: "demo", UploadPreset: "p", APIKey: "k", APISecret: "s", Folder: "portfolio"}
	if _, ok := imageStore(cfg, "projects").(*assets.Cloudinary); !ok {
		t.Error("expected Cloudinary when fully configured")
	}
}
