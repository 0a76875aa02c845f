// Package metadata fetches catalogue data for an ISBN from OpenLibrary.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

var (
	ErrInvalidISBN  = errors.New("invalid ISBN")
	ErrISBNNotFound = errors.New("ISBN not found")
)

// BookMetadata is the catalogue draft assembled from an OpenLibrary record.
// It mirrors the fields an operator fills in when registering a book.
type BookMetadata struct {
	Title           string `json:"title,omitempty"`
	Author          string `json:"author,omitempty"`
	ISBN            string `json:"isbn,omitempty"`
	CoverURL        string `json:"cover_url,omitempty"`
	Publisher       string `json:"publisher,omitempty"`
	PublicationYear int    `json:"publication_year,omitempty"`
	Summary         string `json:"summary,omitempty"`
}

// OpenLibraryClient fetches book metadata from the OpenLibrary API.
type OpenLibraryClient struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rateLimiter
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	since := time.Since(r.lastCall)
	if since < r.interval {
		time.Sleep(r.interval - since)
	}
	r.lastCall = time.Now()
}

// NewOpenLibraryClient creates a new OpenLibrary API client with rate limiting.
func NewOpenLibraryClient() *OpenLibraryClient {
	return &OpenLibraryClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:     "https://openlibrary.org",
		rateLimiter: newRateLimiter(time.Second), // 1 request per second
	}
}

// LookupISBN fetches the OpenLibrary record for an ISBN and converts it into
// a catalogue draft. Hyphens and spaces in the ISBN are ignored.
func (c *OpenLibraryClient) LookupISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	isbn = normalizeISBN(isbn)
	if isbn == "" {
		return nil, ErrInvalidISBN
	}

	var record openLibraryBook
	if err := c.getJSON(ctx, fmt.Sprintf("%s/isbn/%s.json", c.baseURL, isbn), &record); err != nil {
		return nil, err
	}

	metadata := &BookMetadata{
		Title:    record.Title,
		ISBN:     isbn,
		CoverURL: fmt.Sprintf("https://covers.openlibrary.org/b/isbn/%s-L.jpg", isbn),
	}
	if len(record.Publishers) > 0 {
		metadata.Publisher = record.Publishers[0]
	}
	if record.PublishDate != "" {
		metadata.PublicationYear = extractYear(record.PublishDate)
	}
	switch v := record.Description.(type) {
	case string:
		metadata.Summary = v
	case map[string]any:
		if val, ok := v["value"].(string); ok {
			metadata.Summary = val
		}
	}

	// Author names live behind a second request
	if len(record.Authors) > 0 {
		if name, err := c.fetchAuthorName(ctx, record.Authors[0].Key); err == nil {
			metadata.Author = name
		}
	}

	return metadata, nil
}

func (c *OpenLibraryClient) fetchAuthorName(ctx context.Context, authorKey string) (string, error) {
	if authorKey == "" {
		return "", fmt.Errorf("empty author key")
	}

	var authorData struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s%s.json", c.baseURL, authorKey), &authorData); err != nil {
		return "", err
	}
	return authorData.Name, nil
}

func (c *OpenLibraryClient) getJSON(ctx context.Context, url string, out any) error {
	c.rateLimiter.wait()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Librarian/1.0 (https://github.com/mrlokans/librarian)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrISBNNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// normalizeISBN removes hyphens and spaces from ISBN.
func normalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	isbn = strings.TrimSpace(isbn)

	// Basic validation: ISBN-10 or ISBN-13
	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}

	return isbn
}

// extractYear tries to extract a 4-digit year from a date string.
func extractYear(dateStr string) int {
	dateStr = strings.TrimSpace(dateStr)
	if len(dateStr) < 4 {
		return 0
	}

	formats := []string{
		"2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2006-01-02",
		"January 2006",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t.Year()
		}
	}

	// Last resort: find 4 consecutive digits
	for i := 0; i <= len(dateStr)-4; i++ {
		if dateStr[i] >= '0' && dateStr[i] <= '9' {
			var year int
			if _, err := fmt.Sscanf(dateStr[i:i+4], "%d", &year); err == nil && year > 1000 && year < 3000 {
				return year
			}
		}
	}

	return 0
}

// OpenLibrary API response types (internal)

type openLibraryBook struct {
	Key         string      `json:"key"`
	Title       string      `json:"title"`
	Authors     []authorRef `json:"authors"`
	Publishers  []string    `json:"publishers"`
	PublishDate string      `json:"publish_date"`
	Description any         `json:"description"` // Can be string or {type, value}
}

type authorRef struct {
	Key string `json:"key"`
}
