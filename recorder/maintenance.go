package recorder

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/karrick/godirwalk"
)

const cleanupInterval = 10 * time.Minute

// SpawnCleaning starts a background loop that keeps the total size of
// recordings under rootDir below maxSize by retiring the oldest sessions.
// Closing the returned channel stops the loop.
func SpawnCleaning(rootDir string, maxSize uint64) chan struct{} {
	stopChan := make(chan struct{})
	logger.Info("starting recordings cleanup", "root", rootDir, "max_size", toGB(maxSize))

	ticker := time.NewTicker(cleanupInterval)
	go func() {
		for {
			select {
			case <-ticker.C:
				retireRecordings(rootDir, maxSize)
			case <-stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	return stopChan
}

type recordingInfo struct {
	path    string
	size    int64
	modTime time.Time
}

func retireRecordings(rootDir string, maxSize uint64) {
	var totalSize uint64
	recordings := []recordingInfo{}

	err := godirwalk.Walk(rootDir, &godirwalk.Options{
		Callback: func(fullPath string, de *godirwalk.Dirent) error {
			if de.IsDir() || !strings.HasSuffix(fullPath, RecordingExt) {
				return nil
			}
			fi, err := os.Stat(fullPath)
			if err != nil {
				return err
			}
			totalSize += uint64(fi.Size())
			recordings = append(recordings, recordingInfo{
				path:    fullPath,
				size:    fi.Size(),
				modTime: fi.ModTime(),
			})
			return nil
		},
	})
	if err != nil {
		logger.Warn("recordings walk failed", "root", rootDir, "err", err)
		return
	}

	if totalSize <= maxSize {
		logger.Debug("recordings under size limit", "size", toGB(totalSize), "max_size", toGB(maxSize))
		return
	}

	// Oldest first.
	sort.Slice(recordings, func(i, j int) bool { return recordings[i].modTime.Before(recordings[j].modTime) })

	var freed uint64
	for _, r := range recordings {
		if totalSize-freed <= maxSize {
			break
		}
		if err := os.Remove(r.path); err != nil {
			logger.Warn("cannot retire recording", "path", r.path, "err", err)
			continue
		}
		os.Remove(strings.TrimSuffix(r.path, RecordingExt) + ManifestExt)
		freed += uint64(r.size)
		logger.Info("retired recording", "path", r.path, "size", toGB(uint64(r.size)))
	}
	logger.Info("recordings cleanup done", "freed", toGB(freed))
}

func toGB(s uint64) string {
	return fmt.Sprintf("%.2fGB", datasize.ByteSize(s).GBytes())
}
