package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hindsight-run/hindsight/internal/storage"
)

var directiveCmd = &cobra.Command{
	Use:   "directive",
	Short: "Manage standing directives",
}

var (
	directiveAddName     string
	directiveAddPriority int
	directiveAddTags     []string
)

var directiveAddCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Add a standing directive",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runDirectiveAdd(strings.Join(args, " "))
	},
}

var directiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active directives",
	Run: func(cmd *cobra.Command, args []string) {
		runDirectiveList()
	},
}

var directiveDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Deactivate a directive",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runDirectiveSetActive(args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(directiveCmd)
	directiveCmd.AddCommand(directiveAddCmd, directiveListCmd, directiveDeactivateCmd)

	directiveAddCmd.Flags().StringVar(&directiveAddName, "name", "", "directive name")
	directiveAddCmd.Flags().IntVar(&directiveAddPriority, "priority", 0, "priority, higher wins ties")
	directiveAddCmd.Flags().StringSliceVarP(&directiveAddTags, "tags", "t", nil, "tags scoping this directive")
}

func runDirectiveAdd(content string) {
	e, err := openEngine()
	if err != nil {
		fatal(err)
	}
	defer e.Store.Close()

	name := directiveAddName
	if name == "" {
		name = content
	}
	dir := &storage.Directive{
		BankID:   bankID,
		Name:     name,
		Content:  content,
		Priority: directiveAddPriority,
		IsActive: true,
		Tags:     directiveAddTags,
	}
	if err := e.Store.CreateDirective(dir); err != nil {
		fatal(fmt.Errorf("create directive: %w", err))
	}
	fmt.Printf("created directive %s\n", dir.ID)
}

func runDirectiveList() {
	e, err := openEngine()
	if err != nil {
		fatal(err)
	}
	defer e.Store.Close()

	dirs, err := e.Store.ListActiveDirectives(bankID)
	if err != nil {
		fatal(fmt.Errorf("list directives: %w", err))
	}
	for _, d := range dirs {
		fmt.Printf("%s [priority %d] %s: %s\n", d.ID, d.Priority, d.Name, d.Content)
	}
}

func runDirectiveSetActive(id string, active bool) {
	e, err := openEngine()
	if err != nil {
		fatal(err)
	}
	defer e.Store.Close()

	if err := e.Store.SetDirectiveActive(id, active); err != nil {
		fatal(fmt.Errorf("set directive active: %w", err))
	}
	fmt.Printf("directive %s active=%v\n", id, active)
}
