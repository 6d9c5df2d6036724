// Package usps validates postal addresses against the USPS Addresses v3 API.
package usps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://apis.usps.com"

// Error codes reported in Result.Error.
const (
	CodeIncompleteAddress = "INCOMPLETE_ADDRESS"
	CodeValidationError   = "VALIDATION_ERROR"
)

// ErrNotConfigured is returned when consumer credentials are missing.
var ErrNotConfigured = errors.New("USPS_CONSUMER_KEY and USPS_CONSUMER_SECRET environment variables are required")

var cityStateZip = regexp.MustCompile(`^(.+),\s*([A-Z]{2})\s+(\d{5})(-\d{4})?$`)

// Address is both the request payload and the validated result.
type Address struct {
	StreetAddress    string `json:"streetAddress"`
	SecondaryAddress string `json:"secondaryAddress,omitempty"`
	City             string `json:"city"`
	State            string `json:"state"`
	ZIPCode          string `json:"ZIPCode"`
	ZIPPlus4         string `json:"ZIPPlus4,omitempty"`
	DeliveryPoint    string `json:"deliveryPoint,omitempty"`
	CarrierRoute     string `json:"carrierRoute,omitempty"`
}

// Complete reports whether street, city, state and ZIP are all present.
func (a Address) Complete() bool {
	return a.StreetAddress != "" && a.City != "" && a.State != "" && a.ZIPCode != ""
}

// Result mirrors the validation outcome returned to API callers.
type Result struct {
	Success          bool     `json:"success"`
	ValidatedAddress *Address `json:"validatedAddress,omitempty"`
	OriginalAddress  Address  `json:"originalAddress"`
	Error            string   `json:"error,omitempty"`
	ErrorDescription string   `json:"errorDescription,omitempty"`
}

// CallRecorder receives provider call timings.
type CallRecorder interface {
	RecordExternalCall(target, operation string, duration time.Duration, err error)
}

// Config configures a Client.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	BaseURL        string
	HTTPClient     *http.Client
	Recorder       CallRecorder
}

// Client calls the address endpoint with a cached client-credentials token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     oauth2.TokenSource
	recorder   CallRecorder
}

// New builds a Client. Tokens are fetched lazily and reused until they expire.
func New(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		recorder:   cfg.Recorder,
	}

	if cfg.ConsumerKey != "" && cfg.ConsumerSecret != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ConsumerKey,
			ClientSecret: cfg.ConsumerSecret,
			TokenURL:     baseURL + "/oauth2/v3/token",
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		c.tokens = cc.TokenSource(tokenCtx)
	}

	return c
}

// Validate submits a structured address. Failures are reported in the Result,
// never as an error, so callers can return them to the client as-is.
func (c *Client) Validate(ctx context.Context, address Address) Result {
	start := time.Now()
	result, err := c.validate(ctx, address)
	if c.recorder != nil {
		c.recorder.RecordExternalCall("usps", "validate_address", time.Since(start), err)
	}
	if err != nil {
		return Result{
			Success:          false,
			OriginalAddress:  address,
			Error:            CodeValidationError,
			ErrorDescription: err.Error(),
		}
	}
	return result
}

func (c *Client) validate(ctx context.Context, address Address) (Result, error) {
	if c.tokens == nil {
		return Result{}, ErrNotConfigured
	}

	token, err := c.tokens.Token()
	if err != nil {
		return Result{}, fmt.Errorf("failed to get USPS OAuth token: %w", err)
	}

	body, err := json.Marshal(requestPayload(address))
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/addresses/v3/address", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		description := fmt.Sprintf("API request failed with status %d", resp.StatusCode)
		var apiErr errorPayload
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != nil && apiErr.Error.Message != "" {
			description = apiErr.Error.Message
		}
		return Result{
			Success:          false,
			OriginalAddress:  address,
			Error:            fmt.Sprintf("API_ERROR_%d", resp.StatusCode),
			ErrorDescription: description,
		}, nil
	}

	var payload responsePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Result{}, fmt.Errorf("decode USPS response: %w", err)
	}

	validated := payload.addressPayload
	if payload.Address != nil {
		validated = *payload.Address
	}

	return Result{
		Success:         true,
		OriginalAddress: address,
		ValidatedAddress: &Address{
			StreetAddress:    firstNonEmpty(validated.StreetAddress, address.StreetAddress),
			SecondaryAddress: validated.SecondaryAddress,
			City:             firstNonEmpty(validated.City, address.City),
			State:            firstNonEmpty(validated.State, address.State),
			ZIPCode:          firstNonEmpty(validated.ZIPCode, validated.ZIP5, address.ZIPCode),
			ZIPPlus4:         firstNonEmpty(validated.ZIPPlus4, validated.ZIP4),
			DeliveryPoint:    validated.DeliveryPoint,
			CarrierRoute:     validated.CarrierRoute,
		},
	}, nil
}

// ParseAddress splits a free-form multi-line address. The last line must read
// "City, ST 12345" or "City, ST 12345-6789"; otherwise only the first line is
// kept as the street.
func ParseAddress(raw string) Address {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return Address{}
	}

	match := cityStateZip.FindStringSubmatch(lines[len(lines)-1])
	if match == nil {
		return Address{StreetAddress: lines[0]}
	}

	addr := Address{
		City:     strings.TrimSpace(match[1]),
		State:    match[2],
		ZIPCode:  match[3],
		ZIPPlus4: strings.TrimPrefix(match[4], "-"),
	}

	street := lines[:len(lines)-1]
	switch {
	case len(street) > 1:
		addr.SecondaryAddress = street[0]
		addr.StreetAddress = strings.Join(street[1:], " ")
	case len(street) == 1:
		addr.StreetAddress = street[0]
	}
	return addr
}

// Format renders an address for display, one component per line.
func Format(a Address) string {
	parts := make([]string, 0, 3)
	if a.SecondaryAddress != "" {
		parts = append(parts, a.SecondaryAddress)
	}
	parts = append(parts, a.StreetAddress)

	zip := a.ZIPCode
	if a.ZIPPlus4 != "" {
		zip = a.ZIPCode + "-" + a.ZIPPlus4
	}
	parts = append(parts, fmt.Sprintf("%s, %s %s", a.City, a.State, zip))
	return strings.Join(parts, "\n")
}

type request struct {
	StreetAddress    string `json:"streetAddress"`
	SecondaryAddress string `json:"secondaryAddress,omitempty"`
	City             string `json:"city"`
	State            string `json:"state"`
	ZIPCode          string `json:"ZIPCode"`
	ZIPPlus4         string `json:"ZIPPlus4,omitempty"`
}

func requestPayload(a Address) request {
	return request{
		StreetAddress:    a.StreetAddress,
		SecondaryAddress: a.SecondaryAddress,
		City:             a.City,
		State:            a.State,
		ZIPCode:          a.ZIPCode,
		ZIPPlus4:         a.ZIPPlus4,
	}
}

type addressPayload struct {
	StreetAddress    string `json:"streetAddress"`
	SecondaryAddress string `json:"secondaryAddress"`
	City             string `json:"city"`
	State            string `json:"state"`
	ZIPCode          string `json:"ZIPCode"`
	ZIP5             string `json:"zip5"`
	ZIPPlus4         string `json:"ZIPPlus4"`
	ZIP4             string `json:"zip4"`
	DeliveryPoint    string `json:"deliveryPoint"`
	CarrierRoute     string `json:"carrierRoute"`
}

type responsePayload struct {
	addressPayload
	Address *addressPayload `json:"address"`
}

type errorPayload struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
