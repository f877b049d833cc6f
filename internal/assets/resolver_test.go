package assets

import (
	"testing"
	"testing/fstest"
)

func TestResolve(t *testing.T) {
	store, err := Load(BundleApp, fstest.MapFS{
		"index.html":       {Data: []byte("index")},
		"js/chunk/a.js":    {Data: []byte("a")},
		"fonts/inter.woff": {Data: []byte("font")},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name     string
		path     string
		wantOK   bool
		wantBody string
	}{
		{name: "leading slash", path: "/index.html", wantOK: true, wantBody: "index"},
		{name: "no leading slash", path: "index.html", wantOK: true, wantBody: "index"},
		{name: "nested", path: "/js/chunk/a.js", wantOK: true, wantBody: "a"},
		{name: "double slash strips once", path: "//index.html", wantOK: false},
		{name: "traversal", path: "/js/../index.html", wantOK: false},
		{name: "directory", path: "/js", wantOK: false},
		{name: "empty", path: "", wantOK: false},
		{name: "missing", path: "/missing.png", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := Resolve(store, tt.path)
			if ok != tt.wantOK {
				t.Fatalf("Resolve(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
			if ok && string(entry.Body) != tt.wantBody {
				t.Fatalf("Resolve(%q) body = %q, want %q", tt.path, entry.Body, tt.wantBody)
			}
		})
	}
}

func TestResolveNilStore(t *testing.T) {
	if _, ok := Resolve(nil, "/index.html"); ok {
		t.Fatal("Resolve(nil) should miss")
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "favicon.ico", want: "image/x-icon"},
		{path: "FAVICON.ICO", want: "image/x-icon"},
		{path: "js/main.js.map", want: "application/json"},
		{path: "fonts/inter.woff2", want: "font/woff2"},
		{path: "robots.txt", want: "text/plain; charset=utf-8"},
		{path: "LICENSE", want: "application/octet-stream"},
		{path: "blob.unknownext", want: "application/octet-stream"},
		{path: "logo.png", want: "image/png"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := ContentType(tt.path); got != tt.want {
				t.Fatalf("ContentType(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
