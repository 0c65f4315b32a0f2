package storage

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/hszk-dev/gotube/internal/domain/repository"
)

// keyFolders are the path segments that start a bucket-relative key.
var keyFolders = []string{"videos", "thumbnails"}

// ExtractKey derives the bucket-relative object key from a stored URL.
// It accepts, in order:
//   - a URL under publicBase, stripped to the remaining path;
//   - a key that already starts with videos/ or thumbnails/;
//   - any other URL with a videos or thumbnails path segment, taking
//     that segment and everything after it.
func ExtractKey(publicBase, rawURL string) (string, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", fmt.Errorf("%w: empty URL", repository.ErrUnrecognizedObjectURL)
	}

	if base := strings.TrimRight(publicBase, "/"); base != "" && strings.HasPrefix(raw, base+"/") {
		if key := cleanKey(strings.TrimPrefix(raw, base+"/")); key != "" {
			return key, nil
		}
	}

	if strings.HasPrefix(raw, repository.PrefixVideos) || strings.HasPrefix(raw, repository.PrefixThumbnails) {
		if key := cleanKey(raw); key != "" {
			return key, nil
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s", repository.ErrUnrecognizedObjectURL, raw)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	// The last matching segment wins so a bucket named like a folder
	// ("/videos/videos/x.mp4") still yields the right key.
	for i := len(segments) - 2; i >= 0; i-- {
		if isKeyFolder(segments[i]) {
			return strings.Join(segments[i:], "/"), nil
		}
	}

	return "", fmt.Errorf("%w: %s", repository.ErrUnrecognizedObjectURL, raw)
}

func isKeyFolder(segment string) bool {
	for _, f := range keyFolders {
		if segment == f {
			return true
		}
	}
	return false
}

// cleanKey drops any query or fragment and unescapes the path.
func cleanKey(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimLeft(s, "/")
	if unescaped, err := url.PathUnescape(s); err == nil {
		s = unescaped
	}
	return s
}

// joinURL appends key to base with exactly one slash between them.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
