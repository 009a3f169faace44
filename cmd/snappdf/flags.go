package main

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// stringList collects a repeatable flag
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// parseCrop reads "x,y,w,h" in native pixels. An empty string means the
// whole image.
func parseCrop(s string) (image.Rectangle, error) {
	if strings.TrimSpace(s) == "" {
		return image.Rectangle{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("crop must be x,y,w,h, got %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("crop value %q: %w", p, err)
		}
		v[i] = n
	}
	if v[0] < 0 || v[1] < 0 || v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("crop must have a non-negative origin and positive size, got %q", s)
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

// parseFlip reads "", "h", "v" or "hv"
func parseFlip(s string) (flipH, flipV bool, err error) {
	for _, c := range strings.ToLower(s) {
		switch c {
		case 'h':
			flipH = true
		case 'v':
			flipV = true
		default:
			return false, false, fmt.Errorf("flip must be a combination of h and v, got %q", s)
		}
	}
	return flipH, flipV, nil
}

// parseLogin splits "email:password" at the first colon
func parseLogin(s string) (email, password string, err error) {
	email, password, ok := strings.Cut(s, ":")
	if !ok || email == "" || password == "" {
		return "", "", fmt.Errorf("login must be email:password")
	}
	return email, password, nil
}
