package main

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"chat-presence/config"
	"chat-presence/globals"
	"chat-presence/persistence"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// A very simple CLI tool for the administration of chat-presence users and
// messages, operating directly on the configured store.

var configPath = pflag.StringP("config", "c", "", "path to config file or directory")

func main() {
	log.SetFlags(0)

	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)
	pflag.Parse()

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}

	globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))

	persister, err := persistence.NewPersister(globalConfig)
	if err != nil {
		panic(err)
	}
	defer persister.Close()

	var cmdShow = &cobra.Command{
		Use:   "show",
		Short: "Show users or messages",
		Long:  `show is for printing user or message information from the store.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Show: use one of the subcommands")
		},
	}
	var cmdShowUsers = &cobra.Command{
		Use:   "users",
		Short: "Show users",
		Long:  `shows a listing of all known users.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			users, err := persister.GetUsers()
			if err != nil {
				globals.AppLogger.Error("could not get users", "error", err)
				return
			}
			u, err := json.Marshal(users)
			if err != nil {
				globals.AppLogger.Error("could not marshal users", "error", err)
				return
			}
			fmt.Println(string(u))
		},
	}
	var cmdShowUser = &cobra.Command{
		Use:   "user [user id]",
		Short: "Show user",
		Long:  `show user prints detail information about the user with the given id.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			user, err := persister.GetUser(args[0])
			if err != nil {
				globals.AppLogger.Error("could not get user", "error", err)
				return
			}
			u, err := json.Marshal(user)
			if err != nil {
				globals.AppLogger.Error("could not marshal user", "error", err)
				return
			}
			fmt.Println(string(u))
		},
	}
	var cmdShowMessages = &cobra.Command{
		Use:   "messages [room]",
		Short: "Show recent messages of a room",
		Long:  `show messages prints the recent messages of the given room, oldest first.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			messages, err := persister.RecentMessages(args[0], globalConfig.HistorySize())
			if err != nil {
				globals.AppLogger.Error("could not get messages", "error", err)
				return
			}
			m, err := json.Marshal(messages)
			if err != nil {
				globals.AppLogger.Error("could not marshal messages", "error", err)
				return
			}
			fmt.Println(string(m))
		},
	}
	var cmdMute = &cobra.Command{
		Use:   "mute [user id]",
		Short: "Mute user",
		Long:  `mute sets the muted flag of the user with the given id.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if _, err := persister.SetUserMuted(args[0], true); err != nil {
				globals.AppLogger.Error("could not mute user", "error", err)
			}
		},
	}
	var cmdUnmute = &cobra.Command{
		Use:   "unmute [user id]",
		Short: "Unmute user",
		Long:  `unmute clears the muted flag of the user with the given id.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if _, err := persister.SetUserMuted(args[0], false); err != nil {
				globals.AppLogger.Error("could not unmute user", "error", err)
			}
		},
	}
	var cmdPrune = &cobra.Command{
		Use:   "prune [days]",
		Short: "Prune old messages",
		Long:  `prune deletes all messages older than the given number of days.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			days, err := strconv.Atoi(args[0])
			if err != nil || days < 0 {
				globals.AppLogger.Error("invalid number of days", "arg", args[0])
				return
			}
			cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
			pruned, err := persister.PruneMessages(cutoff)
			if err != nil {
				globals.AppLogger.Error("could not prune messages", "error", err)
				return
			}
			fmt.Printf("pruned %d messages\n", pruned)
		},
	}
	var rootCmd = &cobra.Command{Use: "chat-presence-admin"}
	rootCmd.AddCommand(cmdShow)
	rootCmd.AddCommand(cmdMute)
	rootCmd.AddCommand(cmdUnmute)
	rootCmd.AddCommand(cmdPrune)
	cmdShow.AddCommand(cmdShowUsers, cmdShowUser, cmdShowMessages)
	rootCmd.Execute()
}
