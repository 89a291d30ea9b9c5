package forecast

import (
	"errors"
)

var (
	// ErrInsufficientHistory is returned when fewer than two points are given.
	ErrInsufficientHistory = errors.New("insufficient history for prediction")
	// ErrNoVariation is returned when every point shares the same x.
	ErrNoVariation = errors.New("no variation in x")
)

// FitLine performs linear regression y = a + bx over points.
func FitLine(points []Point) (Line, error) {
	if len(points) < 2 {
		return Line{}, ErrInsufficientHistory
	}

	var sumX, sumY, sumXY, sumXX float64
	n := float64(len(points))

	for _, p := range points {
		sumX += p.X
		sumY += p.Y
		sumXY += p.X * p.Y
		sumXX += p.X * p.X
	}

	// Slope b = (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return Line{}, ErrNoVariation
	}
	b := (n*sumXY - sumX*sumY) / denom
	a := (sumY - b*sumX) / n

	return Line{Slope: b, Intercept: a}, nil
}

// MeanY returns the arithmetic mean of the y values, or 0 for no points.
func MeanY(points []Point) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Y
	}
	return sum / float64(len(points))
}
