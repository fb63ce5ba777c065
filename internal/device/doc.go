// Package device provides the device registry for terrarium-core.
//
// A device is one physical sensor unit (an air module, a temperature probe,
// a light meter) identified by a stable external key. Devices enter the
// system two ways: seeded on first boot, or auto-provisioned when the first
// reading arrives for an unseen key. They are never deleted.
//
// # Key Types
//
//   - Device: the provisioned identity with display metadata and poll cadence
//   - Repository: persistence interface with a SQLite implementation
//   - Registry: thread-safe cached view over a Repository
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	if err := device.SeedDefaults(ctx, repo, log); err != nil {
//	    return err
//	}
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	devices, _ := registry.ListDevices(ctx)
//
// # Thread Safety
//
// The Registry is safe for concurrent use. All operations are protected by
// a read-write mutex. The Repository implementation must also be thread-safe.
package device
