// Package libdocker runs validation containers against a project
// workspace. Only images registered in this file can ever run: the
// allow-list is compiled in and is never extended from configuration,
// task data or the network, so task authors cannot point the engine
// at arbitrary images.
package libdocker

import "strings"

// RegisteredImage describes one allowed image. Local images are built
// from a named Dockerfile, remote ones are pulled from a registry.
type RegisteredImage struct {
	Key         string
	Description string
	Remote      bool
	// Path is a registry reference for remote images and a
	// Dockerfile name for local ones.
	Path string
}

var registeredImages = []RegisteredImage{
	{
		Key:         "go1.22",
		Description: "Go 1.22 build and test environment",
		Path:        "Go1.22",
	},
	{
		Key:         "go1.22-race",
		Description: "Go 1.22 with race detector enabled",
		Path:        "Go1.22-race",
	},
	{
		Key:         "api-client-test",
		Description: "test server for API client validation",
		Remote:      true,
		Path:        "ghcr.io/projectlighthouse/api-client-test:latest",
	},
}

// LookupImage finds a registered image by key. Keys are matched
// case-insensitively. A nil result means the image is not allowed.
func LookupImage(key string) *RegisteredImage {
	keyLower := strings.ToLower(key)
	for i := range registeredImages {
		if registeredImages[i].Key == keyLower {
			return &registeredImages[i]
		}
	}
	return nil
}

// IsRegistered reports whether an image key is in the allow-list.
func IsRegistered(key string) bool {
	return LookupImage(key) != nil
}

// ImageKeys returns all registered image keys.
func ImageKeys() []string {
	keys := make([]string, len(registeredImages))
	for i, img := range registeredImages {
		keys[i] = img.Key
	}
	return keys
}
