package engine

import (
	"fmt"
	"time"

	"vitalwatch/internal/models"
)

const (
	behaviorMinWindow = 6

	// Night is 22:00 through 06:59 of the wall clock at evaluation time.
	nightStartHour = 22
	nightEndHour   = 6

	inactivityMeanSpan   = 6
	inactivityCheckSpan  = 12
	inactivityMinWindow  = 24
	inactivityMeanLimit  = 0.1
	inactivityLevelLimit = 0.15

	wanderingMotionLevel = 0.6
	wanderingCheckSpan   = 12
	wanderingActiveLevel = 0.5
	wanderingActiveCount = 6
)

// isNight classifies the given wall-clock time.
func isNight(now time.Time) bool {
	hour := now.Hour()
	return hour >= nightStartHour || hour <= nightEndHour
}

// EvaluateBehavior runs the circadian activity checks against the window as
// it stood before the current sample was appended. Day/night is taken from
// now, the wall-clock time of evaluation, not from the sample's own
// timestamp; callers replaying history get the same literal behavior as
// live monitoring.
func EvaluateBehavior(sample models.VitalSample, window []models.VitalSample, now time.Time) []models.Alert {
	if len(window) < behaviorMinWindow {
		return nil
	}

	var alerts []models.Alert
	night := isNight(now)

	if !night {
		recent := window[len(window)-inactivityMeanSpan:]
		sum := 0.0
		for _, s := range recent {
			sum += s.MotionLevel
		}
		meanMotion := sum / float64(len(recent))

		if meanMotion < inactivityMeanLimit && len(window) > inactivityMinWindow {
			stillCount := 0
			checked := window[len(window)-inactivityCheckSpan:]
			for _, s := range checked {
				if s.MotionLevel < inactivityLevelLimit {
					stillCount++
				}
			}
			if stillCount == len(checked) {
				alerts = append(alerts, models.Alert{
					Category: models.AlertSustainedInactivity,
					Severity: models.SeverityWarning,
					Message:  fmt.Sprintf("Sustained daytime inactivity: mean motion %.2f over last %d readings", meanMotion, inactivityMeanSpan),
					Value:    meanMotion,
				})
			}
		}
	}

	if night && sample.MotionLevel > wanderingMotionLevel {
		activeCount := 0
		span := wanderingCheckSpan
		if len(window) < span {
			span = len(window)
		}
		checked := window[len(window)-span:]
		for _, s := range checked {
			if s.MotionLevel > wanderingActiveLevel {
				activeCount++
			}
		}
		if activeCount > wanderingActiveCount {
			alerts = append(alerts, models.Alert{
				Category: models.AlertNocturnalActivity,
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("Nocturnal activity: motion %.2f with %d of last %d readings active", sample.MotionLevel, activeCount, wanderingCheckSpan),
				Value:    sample.MotionLevel,
			})
		}
	}

	return alerts
}
