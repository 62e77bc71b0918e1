package app

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"

	"boorusync/pkg/remote"
)

// acquireFile decides which payload becomes the canonical file for a
// post. A legacy copy whose checksum matches the remote-reported one is
// used as-is, saving a download; otherwise the file is fetched from the
// remote source. Callers must not invoke this for deleted-content posts.
func (a *App) acquireFile(ctx context.Context, rec remote.PostRecord) ([]byte, error) {
	if a.legacy != nil {
		data, ok, err := a.legacy.FileFor(rec.ID)
		if err != nil {
			return nil, err
		}
		if ok && checksum(data) == rec.File.MD5 {
			slog.Info("file from legacy store", "id", rec.ID)
			return data, nil
		}
	}
	data, ok, err := a.remote.GetFile(ctx, rec.File.MD5, rec.File.Ext)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The remote metadata claims this file exists.
		return nil, fmt.Errorf("remote file %s.%s missing", rec.File.MD5, rec.File.Ext)
	}
	return data, nil
}

func checksum(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
