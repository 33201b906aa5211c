// Package firmware loads and checks firmware images before upload.
package firmware

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/httpx"
)

// Images start with one of these magics; hex dumps start with their hex form.
var (
	magics    = [][]byte{[]byte("TRZR"), []byte("TRZV")}
	hexMagics = []string{"54525a52", "54525a56"}
)

// Normalize decodes a hex-encoded image and leaves raw images untouched.
func Normalize(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	for _, prefix := range hexMagics {
		if len(trimmed) < len(prefix) || !strings.EqualFold(string(trimmed[:len(prefix)]), prefix) {
			continue
		}
		raw, err := hex.DecodeString(string(trimmed))
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeUsage, "decode hex firmware", err)
		}
		return raw, nil
	}
	return data, nil
}

// CheckHeader fails unless image starts with a known firmware magic.
func CheckHeader(image []byte) error {
	for _, magic := range magics {
		if bytes.HasPrefix(image, magic) {
			return nil
		}
	}
	prefix := image
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return clierr.New(clierr.CodeFirmwareHeader, fmt.Sprintf("firmware header expected TRZR or TRZV, got %q", prefix))
}

// Prepare normalizes data and checks its header unless skipCheck is set.
func Prepare(data []byte, skipCheck bool) ([]byte, error) {
	image, err := Normalize(data)
	if err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, clierr.New(clierr.CodeUsage, "firmware image is empty")
	}
	if !skipCheck {
		if err := CheckHeader(image); err != nil {
			return nil, err
		}
	}
	return image, nil
}

// LoadFile reads an image from disk.
func LoadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "read firmware file", err)
	}
	return data, nil
}

// Release is one entry of the published releases list.
type Release struct {
	Version     []int  `json:"version"`
	URL         string `json:"url"`
	Fingerprint string `json:"fingerprint"`
	Changelog   string `json:"changelog"`
}

func (r Release) VersionString() string {
	parts := make([]string, len(r.Version))
	for i, v := range r.Version {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ".")
}

// FetchReleases downloads the releases list, newest first.
func FetchReleases(ctx context.Context, client *httpx.Client, url string) ([]Release, error) {
	var releases []Release
	if _, err := httpx.DoBodyJSON(ctx, client, "GET", url, nil, nil, &releases); err != nil {
		return nil, err
	}
	sort.SliceStable(releases, func(i, j int) bool {
		return compareVersions(releases[i].Version, releases[j].Version) > 0
	})
	return releases, nil
}

// SelectRelease returns the release matching version, or the newest one when
// version is empty.
func SelectRelease(releases []Release, version string) (Release, error) {
	if len(releases) == 0 {
		return Release{}, clierr.New(clierr.CodeUnavailable, "no firmware releases published")
	}
	if strings.TrimSpace(version) == "" {
		return releases[0], nil
	}
	for _, r := range releases {
		if r.VersionString() == strings.TrimSpace(version) {
			return r, nil
		}
	}
	return Release{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("firmware version %s not found", version))
}

// Download fetches a release image relative to base.
func Download(ctx context.Context, client *httpx.Client, base string, release Release) ([]byte, error) {
	url := release.URL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(url, "/")
	}
	return httpx.GetBytes(ctx, client, url)
}

func compareVersions(a, b []int) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			if x > y {
				return 1
			}
			return -1
		}
	}
	return 0
}
