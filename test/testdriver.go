package test

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/godo.v2/glob"

	"tavern.com/gameserver/gamescript"
)

var testDriverLogger = log.With().Str("logger_name", "test::testdriver").Logger()

type ScriptTestResult struct {
	Filename string
	Passed   bool
	Failures []error
	Disabled bool
}

func (s *ScriptTestResult) addError(e error) {
	s.Failures = append(s.Failures, e)
}

// runs game scripts and captures the results
// and output the results at the end
type TestDriver struct {
	ScriptResult map[string]*ScriptTestResult
	ScriptFiles  []string
}

func NewTestDriver() *TestDriver {
	return &TestDriver{ScriptResult: make(map[string]*ScriptTestResult), ScriptFiles: make([]string, 0)}
}

func (t *TestDriver) RunGameScript(filename string) error {
	result := &ScriptTestResult{Filename: filename, Failures: make([]error, 0)}
	t.ScriptResult[filename] = result
	t.ScriptFiles = append(t.ScriptFiles, filename)

	script, err := gamescript.ReadGameScript(filename)
	if err != nil {
		fmt.Printf("Failed to load file: %s\n", filename)
		result.addError(err)
		return err
	}
	if script.Disabled {
		result.Disabled = true
		return nil
	}

	testDriverLogger.Info().Msgf("Running game script: %s", filename)
	gs := &GameScript{Script: script, filename: filename, result: result}
	err = gs.run()
	if err != nil {
		result.addError(err)
		return err
	}
	result.Passed = len(result.Failures) == 0
	return nil
}

func (t *TestDriver) ReportResult() bool {
	passed := true
	for _, scriptFile := range t.ScriptFiles {
		result := t.ScriptResult[scriptFile]
		if result.Disabled {
			fmt.Printf("Script %s is disabled\n", result.Filename)
			continue
		}

		if len(result.Failures) != 0 {
			passed = false
			fmt.Printf("Script %s failed\n", scriptFile)
			fmt.Printf("===========================\n")
			for _, e := range result.Failures {
				fmt.Printf("%s\n", e.Error())
			}
			fmt.Printf("===========================\n")
		}
	}
	return passed
}

// ScriptFiles lists the yaml scripts in fileOrDir whose file name contains
// testName.
func ScriptFiles(fileOrDir string, testName string) ([]string, error) {
	info, err := os.Stat(fileOrDir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s does not exist", fileOrDir)
	}
	pattern := fileOrDir
	if info.IsDir() {
		pattern = fmt.Sprintf("%s/**/*.yaml", fileOrDir)
	}
	files, _, err := glob.Glob([]string{pattern})
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to get game script file(s) from dir: %s", fileOrDir)
	}

	paths := make([]string, 0, len(files))
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if testName != "" && !strings.Contains(file.Name(), testName) {
			continue
		}
		paths = append(paths, file.Path)
	}
	return paths, nil
}

func RunGameScriptTests(fileOrDir string, testName string) error {
	files, err := ScriptFiles(fileOrDir, testName)
	if err != nil {
		return err
	}

	testDriver := NewTestDriver()
	for _, file := range files {
		fmt.Printf("----------------------------------------------\n")
		testDriver.RunGameScript(file)
		fmt.Printf("----------------------------------------------\n")
	}

	passed := testDriver.ReportResult()
	if !passed {
		return fmt.Errorf("One or more scripts failed")
	}
	fmt.Printf("All scripts passed\n")
	return nil
}
