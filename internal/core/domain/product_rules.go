package domain

import (
	"regexp"
	"strings"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]`)
	dashRun  = regexp.MustCompile(`-+`)
)

// Slugify builds the URL-safe slug for a listing name and id.
func Slugify(name, id string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(name), "-")
	s = dashRun.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if id == "" {
		return s
	}
	if s == "" {
		return id
	}
	return s + "-" + id
}

// ComputeRating returns the arithmetic mean and count of review ratings.
func ComputeRating(reviews map[string]Review) (float64, int) {
	if len(reviews) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews)), len(reviews)
}

// DeriveStatus flips between active and out_of_stock as quantity crosses zero.
// inactive and discontinued are left untouched.
func DeriveStatus(current ProductStatus, quantity int) ProductStatus {
	switch {
	case quantity == 0 && current == ProductActive:
		return ProductOutOfStock
	case quantity > 0 && current == ProductOutOfStock:
		return ProductActive
	default:
		return current
	}
}

// ApplyStockOperation computes the new quantity, never going below zero.
func ApplyStockOperation(current int, op StockOperation, amount int) int {
	var next int
	switch op {
	case StockAdd:
		next = current + amount
	case StockSubtract:
		next = current - amount
	default:
		next = amount
	}
	if next < 0 {
		return 0
	}
	return next
}

// EnsurePrimaryImage keeps exactly one primary image when any exist,
// promoting the first image if none is marked.
func EnsurePrimaryImage(images []ProductImage) []ProductImage {
	seen := false
	for i := range images {
		if images[i].IsPrimary {
			if seen {
				images[i].IsPrimary = false
			}
			seen = true
		}
	}
	if !seen && len(images) > 0 {
		images[0].IsPrimary = true
	}
	return images
}

// NormalizeTags lowercases and trims tags, dropping empties and duplicates.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
