package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCampaignStatusValid(t *testing.T) {
	valid := []CampaignStatus{
		CampaignStatusDraft, CampaignStatusActive, CampaignStatusRunning,
		CampaignStatusStopped, CampaignStatusCompleted, CampaignStatusTest,
	}
	for _, s := range valid {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, CampaignStatus("archived").Valid())
	assert.False(t, CampaignStatus("").Valid())
}

func TestSuccessEventTypeValid(t *testing.T) {
	assert.True(t, SuccessEventClick.Valid())
	assert.True(t, SuccessEventCaptured.Valid())
	assert.False(t, SuccessEventType("report").Valid())
	assert.False(t, SuccessEventType("open").Valid())
}

func TestCampaignRunsOn(t *testing.T) {
	monday := time.Monday

	tests := []struct {
		name string
		days string
		want bool
	}{
		{"empty means every day", "", true},
		{"full name", "monday,friday", true},
		{"short name", "mon,fri", true},
		{"other days only", "tuesday,wed", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Campaign{Days: tt.days}
			assert.Equal(t, tt.want, c.RunsOn(monday))
		})
	}
}
