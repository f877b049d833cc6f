package runtimeconfig

import (
	"bytes"
	"encoding/json"
)

// Document is served as /config.json and tells the browser application where
// the JSON-RPC node and the explorer's own assets live.
type Document struct {
	ErigonURL       string `json:"erigonURL"`
	AssetsURLPrefix string `json:"assetsURLPrefix"`
}

// Compose builds the document from the operator supplied RPC URL and the
// address the server is bound to.
func Compose(rpcURL, listenAddr string) Document {
	return Document{
		ErigonURL:       rpcURL,
		AssetsURLPrefix: "http://" + listenAddr,
	}
}

// JSON encodes the document without HTML escaping so URLs appear as given.
func (d Document) JSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
