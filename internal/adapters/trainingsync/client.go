// Package trainingsync fetches the training catalogue published by the
// central training office API.
package trainingsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultTimeout bounds a whole fetch.
const DefaultTimeout = 10 * time.Second

// maxBody caps the response size read from the API.
const maxBody = 4 << 20

// ExternalID accepts the API's training id as either a JSON string or number.
type ExternalID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ExternalID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ExternalID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("training id: %w", err)
	}
	*id = ExternalID(n.String())
	return nil
}

// Item is one training as published by the API.
type Item struct {
	ID                  ExternalID `json:"id"`
	Title               string     `json:"title" validate:"required,max=200"`
	Description         string     `json:"description" validate:"max=10000"`
	TrainingDate        string     `json:"training_date" validate:"required,startswith_date"`
	TrainingEndDate     string     `json:"training_end_date" validate:"omitempty,startswith_date"`
	DurationHours       FlexNumber `json:"duration_hours" validate:"gte=0"`
	Instructor          string     `json:"instructor"`
	Location            string     `json:"location"`
	MaxParticipants     FlexNumber `json:"max_participants" validate:"gte=0"`
	CurrentParticipants FlexNumber `json:"current_participants" validate:"gte=0"`
	Status              string     `json:"status" validate:"omitempty,oneof=scheduled ongoing completed cancelled"`
}

// FlexNumber accepts a JSON number, a numeric string or null.
type FlexNumber float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		*f = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", s)
		}
		*f = FlexNumber(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FlexNumber(v)
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Dates may carry a time suffix; only the leading YYYY-MM-DD is used.
	_ = v.RegisterValidation("startswith_date", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) < 10 {
			return false
		}
		_, err := time.Parse("2006-01-02", s[:10])
		return err == nil
	})
	return v
}

// Validate checks that an item carries what an upsert needs.
func (it Item) Validate() error {
	if err := validate.Struct(it); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("field %s failed %s", verrs[0].Field(), verrs[0].Tag())
		}
		return err
	}
	return nil
}

// Client fetches the training catalogue.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a client for the catalogue at url.
func NewClient(url string) *Client {
	return &Client{url: url, http: &http.Client{Timeout: DefaultTimeout}}
}

// Fetch downloads and decodes the catalogue.
// PRE: url is an http(s) URL
// POST: Returns every decoded item, valid or not; non-200 responses are errors
func (c *Client) Fetch(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch trainings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch trainings: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read trainings: %w", err)
	}
	var items []Item
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode trainings: %w", err)
	}
	return items, nil
}
