package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"vitalwatch/internal/config"
	"vitalwatch/internal/logger"
	"vitalwatch/internal/models"
)

// vitalgen publishes synthetic vital samples over MQTT so the service can
// be exercised without real telemetry hardware. Roughly one sample in
// twenty carries an injected abnormality.

const anomalyChance = 0.05

func main() {
	patientList := flag.String("patients", "patient-1,patient-2,patient-3", "comma-separated patient IDs")
	interval := flag.Duration("interval", 5*time.Second, "publish interval per patient")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log.Level, "console", "")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.Broker)
	opts.SetClientID(cfg.MQTT.ClientID + "-gen")
	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
	}
	if cfg.MQTT.Password != "" {
		opts.SetPassword(cfg.MQTT.Password)
	}
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal("Failed to connect to MQTT broker", zap.Error(token.Error()))
	}
	defer client.Disconnect(250)

	patients := strings.Split(*patientList, ",")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info("vitalgen started",
		zap.Int("patients", len(patients)),
		zap.Duration("interval", *interval),
	)

	for {
		select {
		case <-ticker.C:
			for _, patientID := range patients {
				sample := generateSample(rng, strings.TrimSpace(patientID))
				payload, err := json.Marshal(sample)
				if err != nil {
					log.Error("Failed to marshal sample", zap.Error(err))
					continue
				}
				topic := "vitalwatch/vitals/" + sample.PatientID
				token := client.Publish(topic, cfg.MQTT.QoS, false, payload)
				token.Wait()
				if token.Error() != nil {
					log.Error("Failed to publish sample",
						zap.String("topic", topic),
						zap.Error(token.Error()),
					)
				}
			}
		case sig := <-sigChan:
			log.Info("Received signal, stopping", zap.String("signal", sig.String()))
			return
		}
	}
}

// generateSample produces a plausible reading around resting baselines,
// occasionally replaced by an abnormal one.
func generateSample(rng *rand.Rand, patientID string) models.VitalSample {
	sample := models.VitalSample{
		PatientID:       patientID,
		HeartRate:       68 + rng.Intn(20),
		BloodPressure:   models.BloodPressure{Systolic: 110 + rng.Intn(25), Diastolic: 70 + rng.Intn(15)},
		SpO2:            96 + rng.Float64()*3,
		BodyTemperature: 36.4 + rng.Float64()*0.8,
		MotionLevel:     rng.Float64() * 0.6,
		FallRiskScore:   rng.Float64() * 40,
		RecordedAt:      time.Now().UTC(),
	}

	if rng.Float64() < anomalyChance {
		switch rng.Intn(4) {
		case 0:
			sample.HeartRate = 30 + rng.Intn(10) // bradycardia
		case 1:
			sample.HeartRate = 140 + rng.Intn(30) // tachycardia
		case 2:
			sample.SpO2 = 82 + rng.Float64()*5 // hypoxemia
		case 3:
			sample.FallRiskScore = 85 + rng.Float64()*15 // fall
		}
	}

	return sample
}
