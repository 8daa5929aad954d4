package Transformer

import (
	"fmt"
	"os"

	"github.com/GrainArc/LULCSampler/models"
	"github.com/mholt/archiver/v3"
)

// unzipShapefile 解压压缩包并返回其中第一个 .shp 路径，cleanup 删除临时目录
func unzipShapefile(zipPath string) (string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "lulc-shp-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("%w: %v", models.ErrUnreadableFile, err)
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	if err := archiver.Unarchive(zipPath, tmpDir); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("%w: %s: %v", models.ErrUnreadableFile, zipPath, err)
	}

	files, err := FindFiles(tmpDir, "shp")
	if err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("%w: %s: %v", models.ErrUnreadableFile, zipPath, err)
	}
	if len(files) == 0 {
		cleanup()
		return "", func() {}, fmt.Errorf("%w: %s: no shapefile in archive", models.ErrUnreadableFile, zipPath)
	}
	return files[0], cleanup, nil
}

// ZipFiles 将文件打包为 zip
func ZipFiles(files []string, zipPath string) error {
	if err := os.Remove(zipPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", models.ErrWrite, err)
	}
	if err := archiver.Archive(files, zipPath); err != nil {
		return fmt.Errorf("%w: %s: %v", models.ErrWrite, zipPath, err)
	}
	return nil
}
