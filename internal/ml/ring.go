package ml

import (
	"math"
	"sync"
)

// SharingRingDetector infers fraud rings from device and IP reuse across
// users. It remembers which users have been seen on each device fingerprint
// and source address, and raises suspicion as sharing grows.
type SharingRingDetector struct {
	mu       sync.Mutex
	byDevice map[string][]string // deviceID -> user ids
	byIP     map[string][]string // ip -> user ids
}

// NewSharingRingDetector creates an empty sharing-based ring detector.
func NewSharingRingDetector() *SharingRingDetector {
	return &SharingRingDetector{
		byDevice: make(map[string][]string),
		byIP:     make(map[string][]string),
	}
}

// DetectRing records the (user, ip, device) observation and returns the
// current suspicion for this user. Suspicion starts at zero and grows 20
// points per other user sharing the device and 10 per other user sharing
// the IP, capped at 100.
func (d *SharingRingDetector) DetectRing(userID, ip, deviceID string) RingSignal {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.byDevice[deviceID] = appendUnique(d.byDevice[deviceID], userID)
	if ip != "" {
		d.byIP[ip] = appendUnique(d.byIP[ip], userID)
	}

	sharedDevice := others(d.byDevice[deviceID], userID)
	sharedIP := others(d.byIP[ip], userID)

	score := float64(len(sharedDevice))*20 + float64(len(sharedIP))*10

	return RingSignal{
		SuspicionScore:    math.Min(score, 100),
		SharedDeviceUsers: sharedDevice,
		SharedIPUsers:     sharedIP,
	}
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func others(list []string, self string) []string {
	var out []string
	for _, x := range list {
		if x != self {
			out = append(out, x)
		}
	}
	return out
}
