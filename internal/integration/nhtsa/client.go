// Package nhtsa wraps the NHTSA vPIC VIN decoder and the recalls API.
package nhtsa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultVPICBaseURL    = "https://vpic.nhtsa.dot.gov/api"
	DefaultRecallsBaseURL = "https://api.nhtsa.gov"
)

// DecodedVehicle is the subset of vPIC decode output the marketplace uses.
type DecodedVehicle struct {
	VIN             string `json:"vin"`
	Year            int    `json:"year"`
	Make            string `json:"make"`
	Model           string `json:"model"`
	Trim            string `json:"trim,omitempty"`
	BodyClass       string `json:"body_class,omitempty"`
	FuelType        string `json:"fuel_type,omitempty"`
	EngineCylinders string `json:"engine_cylinders,omitempty"`
}

// Recall is one open safety recall campaign.
type Recall struct {
	Campaign     string `json:"campaign"`
	Manufacturer string `json:"manufacturer"`
	Component    string `json:"component"`
	Summary      string `json:"summary"`
	Consequence  string `json:"consequence"`
	Remedy       string `json:"remedy"`
	ReportDate   string `json:"report_date"`
}

// Client calls the NHTSA public APIs.
type Client struct {
	vpicBaseURL    string
	recallsBaseURL string
	http           *http.Client
	logger         *zap.Logger
}

// NewClient creates a Client. Empty base URLs fall back to the public endpoints.
func NewClient(vpicBaseURL, recallsBaseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if vpicBaseURL == "" {
		vpicBaseURL = DefaultVPICBaseURL
	}
	if recallsBaseURL == "" {
		recallsBaseURL = DefaultRecallsBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		vpicBaseURL:    strings.TrimRight(vpicBaseURL, "/"),
		recallsBaseURL: strings.TrimRight(recallsBaseURL, "/"),
		http:           httpClient,
		logger:         logger,
	}
}

type decodeResponse struct {
	Results []struct {
		VIN             string `json:"VIN"`
		Make            string `json:"Make"`
		Model           string `json:"Model"`
		ModelYear       string `json:"ModelYear"`
		Trim            string `json:"Trim"`
		BodyClass       string `json:"BodyClass"`
		FuelTypePrimary string `json:"FuelTypePrimary"`
		EngineCylinders string `json:"EngineCylinders"`
		ErrorCode       string `json:"ErrorCode"`
		ErrorText       string `json:"ErrorText"`
	} `json:"Results"`
}

// DecodeVIN decodes a 17-character VIN.
func (c *Client) DecodeVIN(ctx context.Context, vin string) (*DecodedVehicle, error) {
	vin = strings.ToUpper(strings.TrimSpace(vin))
	endpoint := fmt.Sprintf("%s/vehicles/DecodeVinValues/%s?format=json", c.vpicBaseURL, url.PathEscape(vin))

	var out decodeResponse
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, fmt.Errorf("vin decode returned no results")
	}
	r := out.Results[0]
	// vPIC reports partial decodes with a non-zero leading error code but still fills fields.
	if r.Make == "" && r.Model == "" {
		return nil, fmt.Errorf("vin decode failed: %s", r.ErrorText)
	}
	year, _ := strconv.Atoi(r.ModelYear)
	return &DecodedVehicle{
		VIN:             vin,
		Year:            year,
		Make:            r.Make,
		Model:           r.Model,
		Trim:            r.Trim,
		BodyClass:       r.BodyClass,
		FuelType:        r.FuelTypePrimary,
		EngineCylinders: r.EngineCylinders,
	}, nil
}

type recallsResponse struct {
	Count   int `json:"Count"`
	Results []struct {
		Campaign     string `json:"NHTSACampaignNumber"`
		Manufacturer string `json:"Manufacturer"`
		Component    string `json:"Component"`
		Summary      string `json:"Summary"`
		Consequence  string `json:"Consequence"`
		Remedy       string `json:"Remedy"`
		ReportDate   string `json:"ReportReceivedDate"`
	} `json:"results"`
}

// Recalls lists recall campaigns for a make/model/year.
func (c *Client) Recalls(ctx context.Context, vehicleMake, model string, year int) ([]Recall, error) {
	q := url.Values{}
	q.Set("make", vehicleMake)
	q.Set("model", model)
	q.Set("modelYear", strconv.Itoa(year))
	endpoint := c.recallsBaseURL + "/recalls/recallsByVehicle?" + q.Encode()

	var out recallsResponse
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	recalls := make([]Recall, 0, len(out.Results))
	for _, r := range out.Results {
		recalls = append(recalls, Recall{
			Campaign:     r.Campaign,
			Manufacturer: r.Manufacturer,
			Component:    r.Component,
			Summary:      r.Summary,
			Consequence:  r.Consequence,
			Remedy:       r.Remedy,
			ReportDate:   r.ReportDate,
		})
	}
	return recalls, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build nhtsa request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("nhtsa request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("nhtsa call",
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("nhtsa returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode nhtsa response: %w", err)
	}
	return nil
}
