package main

import (
	"fmt"
	"strings"

	"bonussim/internal/domain/bonus"
)

// parseMetricFlag reads "key=target:actual", e.g. "revenue=1000:900".
func parseMetricFlag(raw string) (bonus.PerformanceMetric, error) {
	key, values, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return bonus.PerformanceMetric{}, fmt.Errorf("metric %q: want key=target:actual", raw)
	}
	target, actual, ok := strings.Cut(values, ":")
	if !ok {
		return bonus.PerformanceMetric{}, fmt.Errorf("metric %q: want key=target:actual", raw)
	}
	key = strings.TrimSpace(key)
	t, err := bonus.ParseDecimal(key+".target", target)
	if err != nil {
		return bonus.PerformanceMetric{}, err
	}
	a, err := bonus.ParseDecimal(key+".actual", actual)
	if err != nil {
		return bonus.PerformanceMetric{}, err
	}
	return bonus.PerformanceMetric{Key: key, Target: t, Actual: a}, nil
}

// parseRatingFlag reads "item=grade" or "item=value".
func parseRatingFlag(scale bonus.Scale, raw string) (bonus.BehavioralRating, error) {
	item, grade, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(item) == "" {
		return bonus.BehavioralRating{}, fmt.Errorf("%s rating %q: want item=grade", scale.Name, raw)
	}
	return bonus.ParseRating(scale, strings.TrimSpace(item), grade)
}

func parseRatingFlags(scale bonus.Scale, raws []string) ([]bonus.BehavioralRating, error) {
	out := make([]bonus.BehavioralRating, 0, len(raws))
	for _, raw := range raws {
		rating, err := parseRatingFlag(scale, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rating)
	}
	return out, nil
}
