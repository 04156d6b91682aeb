// Command simulator drives a running ambulance tracker: it reports accidents
// near the rider at a fixed cadence and returns arrived ambulances to service.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ambulance-tracker/internal/config"
	"github.com/ukydev/ambulance-tracker/internal/geo"
	"github.com/ukydev/ambulance-tracker/internal/logging"
	"github.com/ukydev/ambulance-tracker/internal/models"
)

// Landmarks around Bengaluru used to label simulated incidents.
var addresses = []string{
	"MG Road",
	"Brigade Road",
	"Residency Road",
	"Cubbon Park",
	"Richmond Circle",
	"Shivajinagar",
	"Ulsoor Lake",
	"Lalbagh Main Gate",
}

var descriptions = []string{
	"Two-wheeler collision",
	"Pedestrian hit by auto-rickshaw",
	"Car rear-ended at signal",
	"Cyclist fell near divider",
	"Bus and car side collision",
}

// Client talks to the tracker API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *Client) post(path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", &buf)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("POST %s failed with status: %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) SetLocation(loc models.Location) error {
	return c.post("/location", loc, nil)
}

func (c *Client) StartTracking() error {
	return c.post("/tracking/start", nil, nil)
}

func (c *Client) CreateReport(req models.CreateReportRequest) (models.Report, error) {
	var report models.Report
	err := c.post("/reports", req, &report)
	return report, err
}

func (c *Client) Recycle(vehicleID string) error {
	return c.post("/vehicles/"+vehicleID+"/recycle", nil, nil)
}

func (c *Client) Vehicles() (models.Snapshot, error) {
	var snap models.Snapshot
	resp, err := c.http.Get(c.baseURL + "/vehicles")
	if err != nil {
		return snap, fmt.Errorf("GET /vehicles: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return snap, fmt.Errorf("GET /vehicles failed with status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return snap, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

// Simulator generates incidents around the rider.
type Simulator struct {
	client *Client
	rider  models.Location
	radius float64
	rng    *rand.Rand
}

func NewSimulator(client *Client, rider models.Location, radiusMeters float64, seed int64) *Simulator {
	return &Simulator{client: client, rider: rider, radius: radiusMeters, rng: rand.New(rand.NewSource(seed))}
}

func (s *Simulator) randomIncident() models.CreateReportRequest {
	loc := geo.JitterMeters(s.rider, s.radius, s.rng.Float64()*2-1, s.rng.Float64()*2-1)
	return models.CreateReportRequest{
		Description: descriptions[s.rng.Intn(len(descriptions))],
		Location:    loc,
		Address:     addresses[s.rng.Intn(len(addresses))],
	}
}

// ReportIncident files one random accident report.
func (s *Simulator) ReportIncident() (models.Report, error) {
	req := s.randomIncident()
	report, err := s.client.CreateReport(req)
	if err != nil {
		return report, err
	}
	log.WithFields(log.Fields{
		"report_id":  report.ID,
		"address":    req.Address,
		"status":     report.Status,
		"vehicle_id": report.VehicleID,
		"eta":        report.ETAMinutes,
	}).Info("Reported incident")
	return report, nil
}

// RecycleArrived returns every arrived vehicle to the waiting pool and reports
// how many were recycled.
func (s *Simulator) RecycleArrived() (int, error) {
	snap, err := s.client.Vehicles()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, v := range snap.Vehicles {
		if v.Status != models.StatusArrived {
			continue
		}
		if err := s.client.Recycle(v.ID); err != nil {
			log.WithError(err).WithField("vehicle_id", v.ID).Warn("Failed to recycle vehicle")
			continue
		}
		log.WithField("vehicle_id", v.ID).Info("Recycled vehicle")
		n++
	}
	return n, nil
}

// Step recycles arrived vehicles and reports one new incident.
func (s *Simulator) Step() {
	if _, err := s.RecycleArrived(); err != nil {
		log.WithError(err).Error("Failed to read fleet")
	}
	if _, err := s.ReportIncident(); err != nil {
		log.WithError(err).Error("Failed to report incident")
	}
}

func main() {
	config.Load(".env")
	logging.Setup(config.GetEnv("LOG_LEVEL", "info"), config.GetEnv("LOG_FORMAT", "text"))

	apiURL := config.GetEnv("API_BASE_URL", "http://localhost:8080/api")
	interval := config.GetEnvAsSeconds("INCIDENT_INTERVAL_SECONDS", 30*time.Second)
	radius := config.GetEnvAsFloat("INCIDENT_RADIUS_METERS", 1500)
	rider := models.Location{
		Lat: config.GetEnvAsFloat("RIDER_LAT", 12.9716),
		Lon: config.GetEnvAsFloat("RIDER_LON", 77.5946),
	}

	log.WithFields(log.Fields{
		"api_url":  apiURL,
		"interval": interval,
		"radius_m": radius,
	}).Info("Starting incident simulation")

	client := NewClient(apiURL)
	if err := client.SetLocation(rider); err != nil {
		log.WithError(err).Fatal("Failed to set rider location. Is the API reachable?")
	}
	if err := client.StartTracking(); err != nil {
		log.WithError(err).Fatal("Failed to start tracking")
	}

	sim := NewSimulator(client, rider, radius, time.Now().UnixNano())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	sim.Step()
	for range ticker.C {
		sim.Step()
	}
}
