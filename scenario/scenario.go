// Package scenario loads simulation scenarios from Lua scripts. A
// scenario script returns a Scenario userdata built with the
// Scenario.new constructor, naming the model to run, its fixed
// parameters, the parameter lists to sweep, and run settings such as
// seed, iteration count, and step limit.
package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/steppesim/steppe/batch"
)

const scenarioTypeName = "scenario"

// Scenario describes a model run or parameter sweep declared in Lua.
type Scenario struct {
	Name       string
	Model      string
	MaxSteps   int
	Iterations int
	Seed       int64
	Workers    int
	Params     map[string]any
	Sweep      map[string][]any
}

// Validate reports whether the scenario is complete enough to run.
func (s *Scenario) Validate() error {
	if strings.TrimSpace(s.Model) == "" {
		return fmt.Errorf("scenario %q: model is required", s.Name)
	}
	if s.MaxSteps < 0 {
		return fmt.Errorf("scenario %q: max_steps must not be negative", s.Name)
	}
	if s.Iterations < 1 {
		return fmt.Errorf("scenario %q: iterations must be at least 1", s.Name)
	}
	return nil
}

// Combinations expands the swept parameter lists into the full cross
// product and merges the fixed parameters into every combination.
func (s *Scenario) Combinations() []batch.Params {
	combos := batch.Product(s.Sweep)
	for i, combo := range combos {
		merged := batch.Params{}
		for key, value := range s.Params {
			merged[key] = value
		}
		for key, value := range combo {
			merged[key] = value
		}
		combos[i] = merged
	}
	return combos
}

// Load evaluates the Lua script at path and returns the Scenario it
// produces. A scenario with no name is named after the file.
func Load(path string) (*Scenario, error) {
	state := newState()
	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	scenario, err := run(state)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scenario, scenario.Validate()
}

// LoadString evaluates src as a Lua scenario script. The name is used
// for error messages and as the fallback scenario name.
func LoadString(src, name string) (*Scenario, error) {
	state := newState()
	if err := lua.LoadString(state, src); err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", name, err)
	}
	scenario, err := run(state)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = name
	}
	return scenario, scenario.Validate()
}

func newState() *lua.State {
	state := lua.NewState()
	lua.OpenLibraries(state)
	registerScenarioType(state)
	registerScenarioConstructor(state)
	return state
}

func run(state *lua.State) (*Scenario, error) {
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run scenario: %w", err)
	}
	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("scenario script must return Scenario.new{...}")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		return nil, fmt.Errorf("scenario script returned invalid Scenario")
	}
	return scenario, nil
}

func registerScenarioType(state *lua.State) {
	lua.NewMetaTable(state, scenarioTypeName)
	state.NewTable()
	lua.SetFunctions(state, scenarioMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

func registerScenarioConstructor(state *lua.State) {
	state.NewTable()
	lua.SetFunctions(state, scenarioConstructor, 0)
	state.SetGlobal("Scenario")
}

var scenarioConstructor = []lua.RegistryFunction{
	{Name: "new", Function: scenarioNew},
}

var scenarioMethods = []lua.RegistryFunction{
	{Name: "param", Function: scenarioParam},
	{Name: "sweep", Function: scenarioSweep},
}

func scenarioNew(state *lua.State) int {
	scenario := &Scenario{
		Iterations: 1,
		Params:     map[string]any{},
		Sweep:      map[string][]any{},
	}
	if !state.IsNoneOrNil(1) {
		lua.CheckType(state, 1, lua.TypeTable)
		applySpec(state, scenario)
	}
	state.PushUserData(scenario)
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

func applySpec(state *lua.State, scenario *Scenario) {
	spec := tableToMap(state, 1)
	for key, value := range spec {
		switch key {
		case "name":
			scenario.Name, _ = value.(string)
		case "model":
			scenario.Model, _ = value.(string)
		case "max_steps":
			scenario.MaxSteps = toInt(value)
		case "iterations":
			if n := toInt(value); n > 0 {
				scenario.Iterations = n
			}
		case "seed":
			scenario.Seed = int64(toInt(value))
		case "workers":
			scenario.Workers = toInt(value)
		case "params":
			if params, ok := value.(map[string]any); ok {
				scenario.Params = params
			}
		case "sweep":
			if lists, ok := value.(map[string]any); ok {
				for name, list := range lists {
					if values, ok := list.([]any); ok {
						scenario.Sweep[name] = values
					}
				}
			}
		default:
			lua.Errorf(state, "unknown scenario field %q", key)
		}
	}
}

// scenarioParam sets one fixed parameter: scenario:param("density", 0.8).
func scenarioParam(state *lua.State) int {
	scenario := checkScenario(state)
	name := lua.CheckString(state, 2)
	lua.CheckAny(state, 3)
	scenario.Params[name] = luaToGo(state, 3)
	state.SetTop(1)
	return 1
}

// scenarioSweep adds one swept list: scenario:sweep("homophily", {2, 3, 4}).
func scenarioSweep(state *lua.State) int {
	scenario := checkScenario(state)
	name := lua.CheckString(state, 2)
	lua.CheckType(state, 3, lua.TypeTable)
	values, ok := tableToGo(state, 3).([]any)
	if !ok {
		lua.ArgumentError(state, 3, "sweep values must be an array")
	}
	scenario.Sweep[name] = values
	state.SetTop(1)
	return 1
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	if scenario, ok := ud.(*Scenario); ok && scenario != nil {
		return scenario
	}
	lua.ArgumentError(state, 1, "scenario expected")
	return nil
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

func tableToGo(state *lua.State, index int) any {
	if state.TypeOf(index) != lua.TypeTable {
		return nil
	}

	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}

	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}

func toInt(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
