// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/ttbt-io/dugout/backend"
	"github.com/ttbt-io/dugout/backend/scoring"
	"github.com/ttbt-io/dugout/backend/session"
)

const commandTimeout = 30 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd, showCmd, statsCmd, watchCmd)
	rootCmd.AddCommand(recordCmd, clearCmd, resetCmd)
	rootCmd.AddCommand(addPlayerCmd, removePlayerCmd, movePlayerCmd, renameCmd, setPositionCmd, setConditionCmd)
	rootCmd.AddCommand(benchCmd, inningCmd, batterCmd)

	f := serveCmd.Flags()
	f.String("addr", ":8080", "The TCP address to listen to")
	f.String("data-dir", "data", "Directory for the record and Raft state")
	f.String("store", backend.StoreFile, "Record store: file or sqlite")
	f.String("record-id", "", "Id of the record to serve")
	f.Bool("raft", false, "Enable Raft replication")
	f.String("raft-bind", ":8081", "Address for Raft TCP transport")
	f.String("raft-advertise", "", "Public address for Raft traffic")
	f.Bool("raft-bootstrap", false, "Bootstrap the Raft cluster (only for first node)")
	f.String("raft-join", "", "HTTP URL of a cluster member to join through")

	addPlayerCmd.Flags().String("pos", string(scoring.PosDH), "Fielding position")
	addPlayerCmd.Flags().String("cond", string(scoring.ConditionNormal), "Condition indicator")
	benchAddCmd.Flags().String("cond", string(scoring.ConditionNormal), "Condition indicator")
	benchCmd.AddCommand(benchAddCmd, benchRemoveCmd, benchMoveCmd, benchConditionCmd)
	inningCmd.AddCommand(inningNextCmd, inningPrevCmd)
	batterCmd.AddCommand(batterNextCmd, batterPrevCmd, batterSetCmd)
}

// applyServeFlags lets command-line flags override the environment.
func applyServeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if f.Changed(name) {
			*dst, _ = f.GetBool(name)
		}
	}
	str("addr", &cfg.Addr)
	str("data-dir", &cfg.DataDir)
	str("store", &cfg.Store)
	str("record-id", &cfg.RecordID)
	boolean("raft", &cfg.RaftEnabled)
	str("raft-bind", &cfg.RaftBind)
	str("raft-advertise", &cfg.RaftAdvertise)
	boolean("raft-bootstrap", &cfg.RaftBootstrap)
	str("raft-join", &cfg.RaftJoin)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dugout server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyServeFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}
		store, closeStore, err := cfg.OpenRecordStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		server, err := backend.StartServer(cfg.ServerOptions(store))
		if err != nil {
			return err
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		log.Info("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return err
		}
		log.Info("Gracefully stopped.")
		return nil
	},
}

func openSession(ctx context.Context, opts session.Options) (*session.Session, error) {
	opts.Delay = cfg.SaveDelay
	return session.Open(ctx, session.NewClient(cfg.ServerURL), opts)
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the scorecard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()
		s, err := openSession(ctx, session.Options{NoSubscribe: true})
		if err != nil {
			return err
		}
		defer s.Close(ctx)
		fmt.Fprint(cmd.OutOrStdout(), backend.RenderScorecard(s.Order()))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print per-player and team statistics as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()
		s, err := openSession(ctx, session.Options{NoSubscribe: true})
		if err != nil {
			return err
		}
		defer s.Close(ctx)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(backend.NewStatsView(s.Order()))
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the scorecard every time it changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		s, err := openSession(cmd.Context(), session.Options{
			OnChange: func(o scoring.Order) {
				fmt.Fprintln(out)
				fmt.Fprint(out, backend.RenderScorecard(o))
			},
		})
		if err != nil {
			return err
		}
		fmt.Fprint(out, backend.RenderScorecard(s.Order()))

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		return s.Close(context.Background())
	},
}

// edit applies fn through a session, saves, and prints the result.
func edit(cmd *cobra.Command, fn func(scoring.Order) (scoring.Order, error)) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()
	s, err := openSession(ctx, session.Options{NoSubscribe: true})
	if err != nil {
		return err
	}
	if err := s.Update(fn); err != nil {
		s.Close(ctx)
		return err
	}
	if err := s.Close(ctx); err != nil {
		return fmt.Errorf("save failed: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), backend.RenderScorecard(s.Order()))
	return nil
}

// parseIndex converts a 1-based command-line position to an index.
func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid number %q: want 1 or more", s)
	}
	return n - 1, nil
}

func parseIndexes(args ...string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		n, err := parseIndex(a)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

var recordCmd = &cobra.Command{
	Use:   "record <player> <at-bat> <result>",
	Short: "Record an at-bat result; an empty result clears the slot",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := parseIndexes(args[0], args[1])
		if err != nil {
			return err
		}
		return edit(cmd, func(o scoring.Order) (scoring.Order, error) {
			return o.RecordResult(idx[0], idx[1], args[2])
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear <player>",
	Short: "Clear a player's results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		return edit(cmd, func(o scoring.Order) (scoring.Order, error) {
			return o.ClearResults(i)
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Start a new game: clear all results and return to the top of the 1st",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return edit(cmd, func(o scoring.Order) (scoring.Order, error) {
			return o.ResetGame(), nil
		})
	},
}

var addPlayerCmd = &cobra.Command{
	Use:   "add-player <name>",
	Short: "Append a player to the batting order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		posFlag, _ := cmd.Flags().GetString("pos")
		condFlag, _ := cmd.Flags().GetString("cond")
		pos, err := scoring.ParsePosition(posFlag)
		if err != nil {
			return err
		}
		cond, err := scoring.ParseCondition(condFlag)
		if err != nil {
			return err
		}
		return edit(cmd, func(o scoring.Order) (scoring.Order, error) {
			return o.AddPlayer(args[0], pos, cond)
		})
	},
}

var removePlayerCmd = &cobra.Command{
	Use:   "remove-player <player>",
	Short: "Remove a player and their results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		return edit(cmd, func(o scoring.Order) (scoring.Order, error) {
			return o.RemovePlayer(i)
		})
	},
}

var movePlayerCmd = &cobra.Command{
	Use:   "move-player <from> <to>",
	Short: "Move a player within the batting order",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := parseIndexes(args...)
		if err != nil {
			return err
		}
		return edit(cmd, func(o scoring.Order) (scoring.Order, error) {
			return o.MovePlayer(idx[0], idx[1])
		})
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <player> <name>",
	Short: "Rename a player",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		return edit(cmd, func(o scoring.Order) (scoring.Order, error) {
			return o.SetName(i, args[1])
		})
	},
}

var setPositionCmd = &cobra.Command{
	Use:   "set-position <player> <position>",
	Short: "Change a player's fielding position",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		pos, err := scoring.ParsePosition(args[1])
		if err != nil {
			return err
		}
		return edit(cmd, func(o scoring.Order) (scoring.Order, error) {
			return o.SetPosition(i, pos)
		})
	},
}

var setConditionCmd = &cobra.Command{
	Use:   "set-condition <player> <condition>",
	Short: "Change a player's condition indicator",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		cond, err := scoring.ParseCondition(args[1])
		if err != nil {
			return err
		}
		return edit(cmd, func(o scoring.Order) (scoring.Order, error) {
			return o.SetCondition(i, cond)
		})
	},
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Edit the bench pitchers, bench catchers and managers lists",
}

var benchAddCmd = &cobra.Command{
	Use:   "add <list> <name>",
	Short: "Add a member to a bench list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := scoring.ParseBenchKind(args[0])
		if err != nil {
			return err
		}
		condFlag, _ := cmd.Flags().GetString("cond")
		cond, err := scoring.ParseCondition(condFlag)
		if err != nil {
			return err
		}
		return edit(cmd, func(o scoring.Order) (scoring.Order, error) {
			return o.AddMember(kind, args[1], cond)
		})
	},
}

var benchRemoveCmd = &cobra.Command{
	Use:   "remove <list> <member>",
	Short: "Remove a member from a bench list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := scoring.ParseBenchKind(args[0])
		if err != nil {
			return err
		}
		i, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		return edit(cmd, func(o scoring.Order) (scoring.Order, error) {
			return o.RemoveMember(kind, i)
		})
	},
}

var benchMoveCmd = &cobra.Command{
	Use:   "move <list> <from> <to>",
	Short: "Reorder a bench list",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := scoring.ParseBenchKind(args[0])
		if err != nil {
			return err
		}
		idx, err := parseIndexes(args[1], args[2])
		if err != nil {
			return err
		}
		return edit(cmd, func(o scoring.Order) (scoring.Order, error) {
			return o.MoveMember(kind, idx[0], idx[1])
		})
	},
}

var benchConditionCmd = &cobra.Command{
	Use:   "set-condition <list> <member> <condition>",
	Short: "Change a bench member's condition indicator",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := scoring.ParseBenchKind(args[0])
		if err != nil {
			return err
		}
		i, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		cond, err := scoring.ParseCondition(args[2])
		if err != nil {
			return err
		}
		return edit(cmd, func(o scoring.Order) (scoring.Order, error) {
			return o.SetMemberCondition(kind, i, cond)
		})
	},
}

var inningCmd = &cobra.Command{
	Use:   "inning",
	Short: "Move the inning/half cursor",
}

var inningNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Advance to the next half inning",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return edit(cmd, func(o scoring.Order) (scoring.Order, error) {
			return o.AdvanceHalf(), nil
		})
	},
}

var inningPrevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Go back one half inning",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return edit(cmd, func(o scoring.Order) (scoring.Order, error) {
			return o.RetreatHalf(), nil
		})
	},
}

var batterCmd = &cobra.Command{
	Use:   "batter",
	Short: "Move the current batter pointer",
}

var errEmptyLineup = errors.New("the batting order is empty")

func moveBatter(step func(scoring.Order) scoring.Order) func(scoring.Order) (scoring.Order, error) {
	return func(o scoring.Order) (scoring.Order, error) {
		if len(o.Lineup) == 0 {
			return o, errEmptyLineup
		}
		return step(o), nil
	}
}

var batterNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Advance to the next batter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return edit(cmd, moveBatter(scoring.Order.NextBatter))
	},
}

var batterPrevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Go back to the previous batter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return edit(cmd, moveBatter(scoring.Order.PreviousBatter))
	},
}

var batterSetCmd = &cobra.Command{
	Use:   "set <player>",
	Short: "Make a player the current batter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		return edit(cmd, func(o scoring.Order) (scoring.Order, error) {
			return o.SetCurrentBatter(i)
		})
	},
}
