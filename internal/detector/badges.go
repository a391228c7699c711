package detector

import (
	"context"

	"cyberguard/internal/kvstore"
)

const (
	keyDetectionCount = "detectionCount"
	keyEarnedBadges   = "earnedBadges"
)

type Badge struct {
	Count       int    `json:"count"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Badges are awarded when the detection count reaches Count exactly.
var Badges = []Badge{
	{Count: 1, Title: "Rookie Detective", Description: "You've completed your first scam analysis! Welcome to the fight against fraud."},
	{Count: 5, Title: "Scam Spotter", Description: "You've analyzed 5 potential scams. Your skills are growing!"},
	{Count: 10, Title: "Cyber Guardian", Description: "10 detections! You're becoming a key protector of the digital world."},
}

func badgeFor(count int) *Badge {
	for i := range Badges {
		if Badges[i].Count == count {
			b := Badges[i]
			return &b
		}
	}
	return nil
}

// Progress is the user's detector history.
type Progress struct {
	DetectionCount int     `json:"detectionCount"`
	Earned         []Badge `json:"earned"`
}

func (d *Detector) recordDetection(ctx context.Context) (int, *Badge, error) {
	if d.store == nil {
		return 0, nil, nil
	}
	count, err := kvstore.Modify(ctx, d.store, keyDetectionCount, func(n *int) error {
		*n++
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	badge := badgeFor(count)
	if badge != nil {
		if err := kvstore.Append(ctx, d.store, keyEarnedBadges, badge); err != nil {
			return count, badge, err
		}
	}
	return count, badge, nil
}

func (d *Detector) Progress(ctx context.Context) (Progress, error) {
	p := Progress{Earned: []Badge{}}
	if d.store == nil {
		return p, nil
	}
	if _, err := kvstore.Get(ctx, d.store, keyDetectionCount, &p.DetectionCount); err != nil {
		return p, err
	}
	if _, err := kvstore.Get(ctx, d.store, keyEarnedBadges, &p.Earned); err != nil {
		return p, err
	}
	return p, nil
}
