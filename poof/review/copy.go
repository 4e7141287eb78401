package review

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/discordforstudywif/poof/shared/logger"
)

// copyTree copies the shadow subtree over the target, preserving structure
// and permissions and overwriting existing files. Whiteout markers are
// skipped; they can't be represented on a regular filesystem and deletions
// aren't propagated.
func copyTree(shadow string, target string) error {
	return filepath.Walk(shadow, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if path == shadow {
			return nil
		}

		rel, err := filepath.Rel(shadow, path)
		if err != nil {
			return err
		}

		dstPath := filepath.Join(target, rel)

		if isWhiteout(info) {
			logger.Debug("Skipping whiteout during apply", logger.Ctx{"path": dstPath})
			return nil
		}

		if info.IsDir() {
			return os.MkdirAll(dstPath, info.Mode().Perm())
		}

		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err := os.Readlink(path)
			if err != nil {
				return err
			}

			err = os.Remove(dstPath)
			if err != nil && !os.IsNotExist(err) {
				return err
			}

			return os.Symlink(linkTarget, dstPath)
		}

		if !info.Mode().IsRegular() {
			logger.Debug("Skipping special file during apply", logger.Ctx{"path": dstPath, "mode": info.Mode().String()})
			return nil
		}

		return copyFile(path, dstPath, info.Mode().Perm())
	})
}

func copyFile(src string, dst string, perm os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("Failed to open %q: %w", src, err)
	}

	defer func() { _ = srcFile.Close() }()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("Failed to create %q: %w", dst, err)
	}

	_, err = io.Copy(dstFile, srcFile)
	if err != nil {
		_ = dstFile.Close()
		return fmt.Errorf("Failed to copy %q: %w", dst, err)
	}

	err = dstFile.Close()
	if err != nil {
		return err
	}

	return os.Chmod(dst, perm)
}
