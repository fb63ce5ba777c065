package device

import (
	"context"
	"fmt"
)

// defaultDevices are the sensor records installed on first boot so a fresh
// system has something to show before the first agent batch arrives.
var defaultDevices = []Device{
	{
		Key:             "ambient_bme280",
		Name:            "Ambient Air",
		Model:           strPtr("BME280"),
		Location:        strPtr("Upper canopy"),
		PollIntervalSec: DefaultPollInterval,
		Enabled:         true,
	},
	{
		Key:             "uv_ltr390",
		Name:            "UV + Light",
		Model:           strPtr("LTR390"),
		Location:        strPtr("Basking zone"),
		PollIntervalSec: DefaultPollInterval,
		Enabled:         true,
	},
	{
		Key:             "probe_ds18b20",
		Name:            "Warm Hide Probe",
		Model:           strPtr("DS18B20"),
		Location:        strPtr("Warm hide"),
		PollIntervalSec: DefaultPollInterval,
		Enabled:         true,
	},
	{
		Key:             "ambient_bh1750",
		Name:            "Ambient Light",
		Model:           strPtr("BH1750"),
		Location:        strPtr("Mid canopy"),
		PollIntervalSec: DefaultPollInterval,
		Enabled:         true,
	},
}

// SeedDefaults inserts the default sensor set on first boot if no devices
// exist. An already-populated table is left untouched.
func SeedDefaults(ctx context.Context, repo Repository, logger Logger) error {
	count, err := repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("checking device count: %w", err)
	}

	if count > 0 {
		logger.Debug("devices exist, skipping default seed", "count", count)
		return nil
	}

	for i := range defaultDevices {
		d := defaultDevices[i]
		if err := repo.Create(ctx, &d); err != nil {
			return fmt.Errorf("seeding device %s: %w", d.Key, err)
		}
	}

	logger.Info("default devices seeded", "count", len(defaultDevices))
	return nil
}

func strPtr(s string) *string {
	return &s
}
