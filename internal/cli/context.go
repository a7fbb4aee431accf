package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/memindex/internal/manager"
	"github.com/rcliao/memindex/internal/model"
)

func init() {
	ctxCmd := &cobra.Command{
		Use:   "context",
		Short: "Context management",
		Long:  "Group memories under conversation, task, session, project or topic contexts.",
	}

	createCmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a context",
		Args:  cobra.MinimumNArgs(1),
		Run:   runContextCreate,
	}
	createCmd.Flags().StringP("kind", "k", string(model.ContextTask), "Kind: conversation, task, session, project, topic")
	createCmd.Flags().String("description", "", "Description")
	createCmd.Flags().String("parent", "", "Parent context id")
	createCmd.Flags().StringToString("meta", nil, "Metadata as key=value pairs")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the user's contexts",
		Run:   runContextList,
	}

	pathCmd := &cobra.Command{
		Use:   "path [context-id]",
		Short: "Show the chain of contexts from the root",
		Args:  cobra.ExactArgs(1),
		Run:   runContextPath,
	}

	attachCmd := &cobra.Command{
		Use:   "attach [context-id] [memory-id]",
		Short: "Link a memory to a context",
		Args:  cobra.ExactArgs(2),
		Run:   runContextAttach,
	}

	memoriesCmd := &cobra.Command{
		Use:   "memories [context-id]",
		Short: "List the memories linked to a context",
		Args:  cobra.ExactArgs(1),
		Run:   runContextMemories,
	}

	ctxCmd.AddCommand(createCmd, listCmd, pathCmd, attachCmd, memoriesCmd)
	RootCmd.AddCommand(ctxCmd)
}

func runContextCreate(cmd *cobra.Command, args []string) {
	kind, _ := cmd.Flags().GetString("kind")
	desc, _ := cmd.Flags().GetString("description")
	parent, _ := cmd.Flags().GetString("parent")
	meta, _ := cmd.Flags().GetStringToString("meta")

	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	ctx, err := m.CreateContext(manager.ContextParams{
		UserID:      getUser(),
		Kind:        model.ContextKind(kind),
		Name:        strings.Join(args, " "),
		Description: desc,
		ParentID:    parent,
		Metadata:    meta,
	}).Unwrap()
	if err != nil {
		exitErr("create context", err)
	}
	if err := saveManager(m); err != nil {
		exitErr("save", err)
	}
	printJSON(ctx)
}

func runContextList(cmd *cobra.Command, args []string) {
	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	ctxs, err := m.ExportContexts(getUser()).Unwrap()
	if err != nil {
		exitErr("list contexts", err)
	}
	if textFormat() {
		for _, c := range ctxs {
			fmt.Printf("%s  %-12s  %s\n", c.ID, c.Kind, c.Name)
		}
		return
	}
	printJSON(ctxs)
}

func runContextPath(cmd *cobra.Command, args []string) {
	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	path, err := m.ContextPath(getUser(), args[0]).Unwrap()
	if err != nil {
		exitErr("context path", err)
	}
	if textFormat() {
		names := make([]string, len(path))
		for i, c := range path {
			names[i] = c.Name
		}
		fmt.Println(strings.Join(names, " > "))
		return
	}
	printJSON(path)
}

func runContextAttach(cmd *cobra.Command, args []string) {
	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	if _, err := m.AttachMemory(getUser(), args[0], args[1]).Unwrap(); err != nil {
		exitErr("attach", err)
	}
	if err := saveManager(m); err != nil {
		exitErr("save", err)
	}
	fmt.Printf(`{"ok":true,"context":%q,"memory":%q}`+"\n", args[0], args[1])
}

func runContextMemories(cmd *cobra.Command, args []string) {
	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	memories, err := m.ContextMemories(getUser(), args[0]).Unwrap()
	if err != nil {
		exitErr("context memories", err)
	}
	printJSON(memories)
}
