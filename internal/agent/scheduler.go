package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/sablewood/terrarium-core/internal/infrastructure/logging"
	"github.com/sablewood/terrarium-core/internal/telemetry"
)

const (
	// minSleep is the shortest pause between polling passes, so a dense
	// schedule cannot spin the loop.
	minSleep = 500 * time.Millisecond

	// idleSleep is the pause when no sensors are configured.
	idleSleep = time.Second
)

// clock abstracts time for the polling loop.
type clock interface {
	now() time.Time
	sleep(ctx context.Context, d time.Duration)
}

// realClock is the production clock.
type realClock struct{}

func (realClock) now() time.Time { return time.Now() }

func (realClock) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Task pairs a sensor with its next due time. A zero nextDue means the
// task is due immediately.
type Task struct {
	sensor  Sensor
	nextDue time.Time
}

// BuildTasks constructs the adapter for every configured sensor. All
// tasks start due, so the first pass polls everything at once.
func BuildTasks(cfgs []SensorConfig) ([]Task, error) {
	tasks := make([]Task, 0, len(cfgs))
	for _, cfg := range cfgs {
		sensor, err := New(cfg)
		if err != nil {
			return nil, fmt.Errorf("building sensor %s: %w", cfg.Key, err)
		}
		tasks = append(tasks, Task{sensor: sensor})
	}
	return tasks, nil
}

// Scheduler polls sensors on their configured intervals and delivers
// each pass's readings to the sink as one batch.
type Scheduler struct {
	tasks  []Task
	sink   Sink
	clock  clock
	logger *logging.Logger
}

// NewScheduler creates a scheduler over the given tasks and sink.
func NewScheduler(tasks []Task, sink Sink, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		tasks:  tasks,
		sink:   sink,
		clock:  realClock{},
		logger: logger,
	}
}

// Run polls until the context is cancelled.
//
// Each pass reads every due sensor once and posts the combined readings
// as a single batch. Read and delivery failures are logged and the
// schedule advances regardless, so one bad sensor or an unreachable
// collector never stalls the others. The next due time is always
// now + interval, absorbing any drift from slow reads.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("agent scheduler started", "sensors", len(s.tasks))

	for {
		if ctx.Err() != nil {
			s.logger.Info("agent scheduler stopped")
			return
		}
		s.tick(ctx)
		s.clock.sleep(ctx, s.sleepFor())
	}
}

// tick runs one polling pass: read every due sensor, advance its
// schedule, and deliver whatever was collected.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.clock.now()

	var batch []telemetry.IncomingReading
	for i := range s.tasks {
		task := &s.tasks[i]
		if task.nextDue.After(now) {
			continue
		}

		values, err := task.sensor.Read()
		if err != nil {
			s.logger.Warn("sensor read failed",
				"sensor", task.sensor.Key(),
				"error", err,
			)
		} else if len(values) > 0 {
			batch = append(batch, task.sensor.Readings(values)...)
		}

		task.nextDue = now.Add(task.sensor.Interval())
	}

	if len(batch) == 0 {
		return
	}

	if err := s.sink.Send(ctx, batch); err != nil {
		s.logger.Warn("delivering readings failed",
			"count", len(batch),
			"error", err,
		)
		return
	}
	s.logger.Debug("readings delivered", "count", len(batch))
}

// sleepFor returns the pause until the next task is due, floored at
// minSleep.
func (s *Scheduler) sleepFor() time.Duration {
	if len(s.tasks) == 0 {
		return idleSleep
	}

	next := s.tasks[0].nextDue
	for _, task := range s.tasks[1:] {
		if task.nextDue.Before(next) {
			next = task.nextDue
		}
	}

	until := next.Sub(s.clock.now())
	if until < minSleep {
		return minSleep
	}
	return until
}
