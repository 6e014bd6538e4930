package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"soondex/internal/config"
	"soondex/internal/registry"
	"soondex/internal/replay"
)

type derivedAddresses struct {
	ProgramID   string            `json:"program_id"`
	Mints       [2]string         `json:"mints"`
	Pool        string            `json:"pool"`
	Bump        uint8             `json:"bump"`
	StakeVault  string            `json:"stake_vault"`
	RewardVault string            `json:"reward_vault"`
	UserStates  map[string]string `json:"user_states,omitempty"`
}

func runDerive(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDerive(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	d := registry.Deriver{ProgramID: registry.DefaultProgramID}
	if cfg.ProgramID != "" {
		if d.ProgramID, err = replay.ParsePublicKey("program-id", cfg.ProgramID); err != nil {
			return err
		}
	}

	mints, err := replay.ParsePublicKeys("mint", cfg.Mints)
	if err != nil {
		return err
	}
	if len(mints) != 2 {
		return fmt.Errorf("exactly two mints are required, got %d", len(mints))
	}
	owners, err := replay.ParsePublicKeys("owner", cfg.Owners)
	if err != nil {
		return err
	}

	pool, bump, err := d.PoolAddress(mints[0], mints[1])
	if err != nil {
		return err
	}
	custody, err := d.Custody(pool)
	if err != nil {
		return err
	}

	lo, hi := registry.SortMints(mints[0], mints[1])
	out := derivedAddresses{
		ProgramID:   d.ProgramID.String(),
		Mints:       [2]string{lo.String(), hi.String()},
		Pool:        pool.String(),
		Bump:        bump,
		StakeVault:  custody.StakeVault.String(),
		RewardVault: custody.RewardVault.String(),
	}
	if len(owners) > 0 {
		out.UserStates = make(map[string]string, len(owners))
		for _, owner := range owners {
			addr, _, err := d.UserStateAddress(pool, owner)
			if err != nil {
				return err
			}
			out.UserStates[owner.String()] = addr.String()
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
