// Package upload implements signed media uploads: a kind 27235 auth-proof
// event carried as an Authorization header against a NIP-96 style hosting
// endpoint.
package upload

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/minagishl/nostro/internal/event"
)

// Known upload hosts. DefaultUploadURL speaks NIP-96; the nostrcheck CDN
// answers with a Location header or a plain URL body.
const (
	DefaultUploadURL    = "https://nostr.build/api/v2/nip96/upload"
	NostrcheckUploadURL = "https://cdn.nostrcheck.me/"
)

// BuildAuthHeader constructs the Authorization header value for an upload:
// a signed kind 27235 event with u/method/payload tags, serialized and
// base64-encoded under the "Nostr " scheme. The payload tag carries a JSON
// object with the base64 SHA-256 of the uploaded bytes.
func BuildAuthHeader(ctx context.Context, signer event.Signer, url, method string, fileData []byte) (string, error) {
	if signer == nil || signer.PublicKey() == "" {
		return "", errors.New("no usable signer for upload authorization")
	}

	hash := sha256.Sum256(fileData)
	payload, err := json.Marshal(map[string]string{
		"hash": base64.StdEncoding.EncodeToString(hash[:]),
	})
	if err != nil {
		return "", err
	}

	evt := event.NewHTTPAuth(signer.PublicKey(), url, method, string(payload))
	if err := signer.Sign(ctx, &evt); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(evt); err != nil {
		return "", err
	}
	encoded := base64.StdEncoding.EncodeToString(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))

	return "Nostr " + encoded, nil
}

// Client uploads files to a media host.
type Client struct {
	HTTPClient *http.Client
	UploadURL  string
}

func NewClient(uploadURL string) *Client {
	if uploadURL == "" {
		uploadURL = DefaultUploadURL
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		UploadURL:  uploadURL,
	}
}

// Upload sends the file as multipart form data with a signed Authorization
// header and returns the hosted URL.
func (c *Client) Upload(ctx context.Context, signer event.Signer, filename string, data []byte) (string, error) {
	auth, err := BuildAuthHeader(ctx, signer, c.UploadURL, http.MethodPost, data)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.UploadURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", auth)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	return parseUploadResponse(c.UploadURL, resp)
}

// nip96Response is the success shape NIP-96 hosts return. The hosted URL
// lives in the embedded file-metadata event's url tag.
type nip96Response struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	NIP94Event *struct {
		Tags [][]string `json:"tags"`
	} `json:"nip94_event"`
}

func parseUploadResponse(uploadURL string, resp *http.Response) (string, error) {
	if strings.Contains(uploadURL, "nostr.build") {
		var data nip96Response
		if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
			return "", err
		}
		if data.Status == "success" && data.NIP94Event != nil {
			for _, tag := range data.NIP94Event.Tags {
				if len(tag) >= 2 && tag[0] == "url" {
					return tag[1], nil
				}
			}
		}
		if data.Message != "" {
			return "", errors.New(data.Message)
		}
		return "", errors.New("upload failed")
	}

	if strings.HasPrefix(uploadURL, NostrcheckUploadURL) {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", fmt.Errorf("upload failed with status %d", resp.StatusCode)
		}
		if location := resp.Header.Get("Location"); location != "" {
			return location, nil
		}
		text, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return "", err
		}
		url := strings.TrimSpace(string(text))
		if strings.HasPrefix(url, "http") {
			return url, nil
		}
		return "", errors.New("no URL returned from CDN")
	}

	// Unknown host: best-effort JSON with a url field
	var data struct {
		URL     string `json:"url"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", errors.New("upload failed")
	}
	if data.URL != "" {
		return data.URL, nil
	}
	if data.Message != "" {
		return "", errors.New(data.Message)
	}
	return "", errors.New("upload failed")
}
