package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/spf13/cobra"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readImage(path string) (*model.Upload, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return &model.Upload{Name: filepath.Base(path), Data: data}, nil
}

func (c *cli) requireUser(cmd *cobra.Command) (*model.User, error) {
	ctx, cancel := c.context(cmd)
	defer cancel()

	user := c.app.Services.CurrentUser(ctx, c.sess)
	if user == nil {
		return nil, errNotLoggedIn
	}
	return user, nil
}

func newPostsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List, read and manage posts",
	}

	cmd.AddCommand(
		newPostsListCmd(c),
		newPostsGetCmd(c),
		newPostsCreateCmd(c),
		newPostsUpdateCmd(c),
		newPostsDeleteCmd(c),
		newPostsStatsCmd(c),
	)
	return cmd
}

func newPostsListCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			viewer := ""
			if user := c.sess.User(); user != nil {
				viewer = user.ID
			}
			feed := c.app.Services.Feed(ctx, viewer)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), feed)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSLUG\tTITLE\tSTATUS\tMINE")
			for _, p := range feed {
				mine := ""
				if p.IsAuthor {
					mine = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Slug, p.Title, p.Status, mine)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print view props as JSON")
	return cmd
}

func newPostsGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <slug>",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			viewer := ""
			if user := c.sess.User(); user != nil {
				viewer = user.ID
			}
			props := c.app.Services.Detail(ctx, args[0], viewer)
			if props == nil {
				return fmt.Errorf("post %q not found", args[0])
			}
			return printJSON(cmd.OutOrStdout(), props)
		},
	}
}

func newPostsCreateCmd(c *cli) *cobra.Command {
	var (
		fields model.NewPost
		status string
		image  string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a post as the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := c.requireUser(cmd)
			if err != nil {
				return err
			}
			upload, err := readImage(image)
			if err != nil {
				return err
			}

			ctx, cancel := c.context(cmd)
			defer cancel()

			fields.AuthorID = user.ID
			fields.Status = model.Status(status)
			post, err := c.app.Services.Publish(ctx, fields, upload)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), post)
		},
	}
	cmd.Flags().StringVar(&fields.Title, "title", "", "Post title (required)")
	cmd.Flags().StringVar(&fields.Content, "content", "", "Post content")
	cmd.Flags().StringVar(&fields.Slug, "slug", "", "Slug (derived from the title when empty)")
	cmd.Flags().StringVar(&status, "status", "", "active or inactive (default active)")
	cmd.Flags().StringVar(&image, "image", "", "Featured image file")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newPostsUpdateCmd(c *cli) *cobra.Command {
	var (
		title, content, status, image string
		removeImage                   bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of one of your posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := c.requireUser(cmd)
			if err != nil {
				return err
			}
			upload, err := readImage(image)
			if err != nil {
				return err
			}

			var update model.PostUpdate
			flags := cmd.Flags()
			if flags.Changed("title") {
				update.Title = &title
			}
			if flags.Changed("content") {
				update.Content = &content
			}
			if flags.Changed("status") {
				s := model.Status(status)
				update.Status = &s
			}
			if removeImage && upload == nil {
				none := model.MediaRef("")
				update.FeaturedImage = &none
			}
			if update.Empty() && upload == nil {
				return errors.New("nothing to update")
			}

			ctx, cancel := c.context(cmd)
			defer cancel()

			post, err := c.app.Services.Edit(ctx, user.ID, args[0], update, upload)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), post)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&content, "content", "", "New content")
	cmd.Flags().StringVar(&status, "status", "", "active or inactive")
	cmd.Flags().StringVar(&image, "image", "", "Replacement featured image file")
	cmd.Flags().BoolVar(&removeImage, "remove-image", false, "Drop the featured image")
	return cmd
}

func newPostsDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your posts and its image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := c.requireUser(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := c.context(cmd)
			defer cancel()

			deleted, err := c.app.Services.Remove(ctx, user.ID, args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("post %q not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
			return nil
		},
	}
}

func newPostsStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [userID]",
		Short: "Count posts by status for a user (default: you)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var authorID string
			if len(args) == 1 {
				authorID = args[0]
			} else {
				user, err := c.requireUser(cmd)
				if err != nil {
					return err
				}
				authorID = user.ID
			}

			ctx, cancel := c.context(cmd)
			defer cancel()

			stats := c.app.Services.AuthorStats(ctx, authorID)
			fmt.Fprintf(cmd.OutOrStdout(), "total %d, active %d, inactive %d, drafts %d\n",
				stats.Total, stats.Active, stats.Inactive, stats.Drafts)
			return nil
		},
	}
}
