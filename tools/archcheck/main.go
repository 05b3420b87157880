package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
)

const modulePath = "github.com/yairfalse/seppo"

type Level int

const (
	LevelCmd Level = iota + 1
	LevelCoordination
	LevelEngine
	LevelFoundation
)

// packageLevels assigns every first-party package to an architectural
// level. Matching is longest-prefix, so pkg/config can sit above
// pkg/types.
var packageLevels = map[string]Level{
	"cmd":                   LevelCmd,
	"internal/orchestrator": LevelCoordination,
	"internal/executor":     LevelEngine,
	"internal/scheduler":    LevelEngine,
	"internal/snapshot":     LevelEngine,
	"internal/rollback":     LevelEngine,
	"internal/verify":       LevelEngine,
	"internal/adapters":     LevelEngine,
	"internal/remote":       LevelEngine,
	"internal/events":       LevelEngine,
	"internal/output":       LevelEngine,
	"pkg/config":            LevelEngine,
	"internal/errors":       LevelFoundation,
	"internal/logger":       LevelFoundation,
	"internal/registry":     LevelFoundation,
	"pkg/types":             LevelFoundation,
}

type Violation struct {
	FromFile    string
	FromPackage string
	FromLevel   Level
	ToPackage   string
	ToLevel     Level
}

func getPackageLevel(pkgPath string) Level {
	var (
		level   Level
		longest int
	)
	for prefix, l := range packageLevels {
		if pkgPath == prefix || strings.HasPrefix(pkgPath, prefix+"/") {
			if len(prefix) > longest {
				longest = len(prefix)
				level = l
			}
		}
	}
	return level
}

func getPackageFromPath(filePath string) string {
	dir := filepath.Dir(filePath)
	dir = strings.TrimPrefix(dir, "./")
	dir = strings.TrimPrefix(dir, ".")
	return dir
}

func checkFile(filePath string) ([]Violation, error) {
	var violations []Violation

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filePath, content, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}

	fromPackage := getPackageFromPath(filePath)
	fromLevel := getPackageLevel(fromPackage)

	if fromLevel == 0 {
		return violations, nil
	}

	for _, imp := range node.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)

		// Only first-party imports carry level rules; standard
		// library and external packages are always allowed.
		if !strings.HasPrefix(importPath, modulePath+"/") {
			continue
		}
		importPath = strings.TrimPrefix(importPath, modulePath+"/")

		toLevel := getPackageLevel(importPath)
		if toLevel == 0 {
			continue
		}

		// Importing from a higher level inverts the dependency flow
		if toLevel < fromLevel {
			violations = append(violations, Violation{
				FromFile:    filePath,
				FromPackage: fromPackage,
				FromLevel:   fromLevel,
				ToPackage:   importPath,
				ToLevel:     toLevel,
			})
		}
	}

	return violations, nil
}

func walkGoFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasSuffix(path, ".go") && !strings.Contains(path, "vendor/") && !strings.Contains(path, ".git/") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func levelName(l Level) string {
	switch l {
	case LevelCmd:
		return "CMD (Level 1)"
	case LevelCoordination:
		return "COORDINATION (Level 2)"
	case LevelEngine:
		return "ENGINE (Level 3)"
	case LevelFoundation:
		return "FOUNDATION (Level 4)"
	default:
		return "UNKNOWN"
	}
}

func main() {
	fmt.Println("🔍 SEPPO Architecture Level Checker")
	fmt.Println("=====================================")
	fmt.Println()
	fmt.Println("Architectural Levels:")
	fmt.Println("  Level 1 (CMD):          cmd/")
	fmt.Println("  Level 2 (COORDINATION): internal/orchestrator")
	fmt.Println("  Level 3 (ENGINE):       executor, scheduler, snapshot, rollback,")
	fmt.Println("                          verify, adapters, remote, events, output, pkg/config")
	fmt.Println("  Level 4 (FOUNDATION):   errors, logger, registry, pkg/types")
	fmt.Println()
	fmt.Println("Rule: Each level can only import from same level or lower (higher number)")
	fmt.Println()

	files, err := walkGoFiles(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error walking files: %v\n", err)
		os.Exit(1)
	}

	var allViolations []Violation
	checkedFiles := 0

	for _, file := range files {
		violations, err := checkFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error checking %s: %v\n", file, err)
			continue
		}
		allViolations = append(allViolations, violations...)
		checkedFiles++
	}

	fmt.Printf("✅ Checked %d Go files\n", checkedFiles)
	fmt.Println()

	if len(allViolations) == 0 {
		fmt.Println("🎉 No architectural level violations found!")
		os.Exit(0)
	}

	fmt.Printf("❌ Found %d architectural level violations:\n", len(allViolations))
	fmt.Println()

	violationMap := make(map[string][]Violation)
	for _, v := range allViolations {
		key := fmt.Sprintf("%s imports %s", levelName(v.FromLevel), levelName(v.ToLevel))
		violationMap[key] = append(violationMap[key], v)
	}

	for violationType, violations := range violationMap {
		fmt.Printf("\n⚠️  %s (%d violations):\n", violationType, len(violations))
		for i, v := range violations {
			if i >= 5 {
				fmt.Printf("   ... and %d more\n", len(violations)-5)
				break
			}
			fmt.Printf("   %s imports %s\n", v.FromPackage, v.ToPackage)
		}
	}

	fmt.Println()
	fmt.Println("📝 To fix these violations:")
	fmt.Println("   1. Move shared code to lower levels (higher numbers)")
	fmt.Println("   2. Use dependency injection to avoid upward dependencies")
	fmt.Println("   3. Consider if the code is in the right package")

	os.Exit(1)
}
