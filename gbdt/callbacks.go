package gbdt

import (
	"time"

	"github.com/clinml/paascreen/pkg/log"
)

// CallbackEnv is the environment passed to callbacks around each round.
type CallbackEnv struct {
	Model        *Model
	Iteration    int
	BeginTime    time.Time
	EvalResults  map[string]float64
	StopTraining bool
}

// Callback is invoked during training; setting env.StopTraining halts
// the boosting loop.
type Callback func(env *CallbackEnv) error

// PrintEvaluation logs evaluation results every period rounds.
func PrintEvaluation(period int) Callback {
	logger := log.GetLoggerWithName("gbdt.eval")
	return func(env *CallbackEnv) error {
		if env.Iteration%period == 0 {
			fields := make([]any, 0, 2+2*len(env.EvalResults))
			fields = append(fields, log.IterationKey, env.Iteration)
			for name, value := range env.EvalResults {
				fields = append(fields, name, value)
			}
			logger.Info("evaluation", fields...)
		}
		return nil
	}
}

// RecordEvaluation appends each round's evaluation results to history.
func RecordEvaluation(history *map[string][]float64) Callback {
	return func(env *CallbackEnv) error {
		if *history == nil {
			*history = make(map[string][]float64)
		}
		for name, value := range env.EvalResults {
			(*history)[name] = append((*history)[name], value)
		}
		return nil
	}
}

// TimeLimit stops training after a wall-clock duration.
func TimeLimit(maxDuration time.Duration) Callback {
	startTime := time.Now()
	logger := log.GetLoggerWithName("gbdt.eval")
	return func(env *CallbackEnv) error {
		if time.Since(startTime) > maxDuration {
			logger.Warn("time limit reached", log.IterationKey, env.Iteration)
			env.StopTraining = true
		}
		return nil
	}
}

// CallbackList manages a set of callbacks.
type CallbackList struct {
	callbacks []Callback
	env       *CallbackEnv
}

// NewCallbackList creates a callback list.
func NewCallbackList(callbacks ...Callback) *CallbackList {
	return &CallbackList{
		callbacks: callbacks,
		env:       &CallbackEnv{},
	}
}

// BeforeIteration runs callbacks before a boosting round.
func (cl *CallbackList) BeforeIteration(iteration int, model *Model) error {
	cl.env.Model = model
	cl.env.Iteration = iteration
	cl.env.BeginTime = time.Now()
	cl.env.EvalResults = nil

	for _, cb := range cl.callbacks {
		if err := cb(cl.env); err != nil {
			return err
		}
	}
	return nil
}

// AfterIteration runs callbacks after a boosting round.
func (cl *CallbackList) AfterIteration(iteration int, model *Model, evalResults map[string]float64) error {
	cl.env.Model = model
	cl.env.Iteration = iteration
	cl.env.EvalResults = evalResults

	for _, cb := range cl.callbacks {
		if err := cb(cl.env); err != nil {
			return err
		}
	}
	return nil
}

// ShouldStop reports whether any callback requested a stop.
func (cl *CallbackList) ShouldStop() bool {
	return cl.env.StopTraining
}
