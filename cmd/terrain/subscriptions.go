package main

import (
	"github.com/spf13/cobra"

	"github.com/cyverse-de/terrain-cli/internal/cli"
	"github.com/cyverse-de/terrain-cli/internal/subscriptions"
)

func (a *app) subscriptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"subscription", "sub", "subs"},
		Short:   "subscription operations",
	}

	var jsonMode bool
	cmd.PersistentFlags().BoolVar(&jsonMode, "json", false, "output JSON")

	service := func(cmd *cobra.Command) (*subscriptions.Service, *cli.Printer, error) {
		client, err := a.apiClient(cmd)
		if err != nil {
			return nil, nil, err
		}
		return subscriptions.NewService(client), cli.NewPrinter(cmd.OutOrStdout(), jsonMode), nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list-plans",
			Aliases: []string{"plans", "lp"},
			Short:   "list available subscription plans",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, p, err := service(cmd)
				if err != nil {
					return err
				}
				plans, err := svc.ListPlans(cmd.Context())
				if err != nil {
					return err
				}
				return p.Plans(plans)
			},
		},
		&cobra.Command{
			Use:     "list-resource-types",
			Aliases: []string{"resource-types", "rt"},
			Short:   "list resource types that quotas apply to",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, p, err := service(cmd)
				if err != nil {
					return err
				}
				types, err := svc.ListResourceTypes(cmd.Context())
				if err != nil {
					return err
				}
				return p.ResourceTypes(types)
			},
		},
	)

	var getUser string
	get := &cobra.Command{
		Use:   "get",
		Short: "display the current subscription for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, p, err := service(cmd)
			if err != nil {
				return err
			}
			sub, err := svc.Get(cmd.Context(), getUser)
			if err != nil {
				return err
			}
			return p.Subscription(sub)
		},
	}
	get.Flags().StringVarP(&getUser, "user", "u", "", "the username of the user to get the subscription for")

	var addUser, addPlan string
	add := &cobra.Command{
		Use:     "add",
		Aliases: []string{"create"},
		Short:   "subscribe a user to a plan",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, p, err := service(cmd)
			if err != nil {
				return err
			}
			sub, err := svc.Add(cmd.Context(), addUser, addPlan)
			if err != nil {
				return err
			}
			return p.Subscription(sub)
		},
	}
	add.Flags().StringVarP(&addUser, "user", "u", "", "the username of the user to subscribe")
	add.Flags().StringVarP(&addPlan, "plan", "p", "", "the name of the plan")
	_ = add.MarkFlagRequired("user")
	_ = add.MarkFlagRequired("plan")

	var quotaUser, quotaResource, quotaValue string
	setQuota := &cobra.Command{
		Use:     "set-quota",
		Aliases: []string{"quota", "sq"},
		Short:   "set a quota for a user, e.g. 100G or 1.5 T",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, p, err := service(cmd)
			if err != nil {
				return err
			}
			sub, err := svc.SetQuota(cmd.Context(), quotaUser, quotaResource, quotaValue)
			if err != nil {
				return err
			}
			return p.Subscription(sub)
		},
	}
	setQuota.Flags().StringVarP(&quotaUser, "user", "u", "", "the username of the user")
	setQuota.Flags().StringVarP(&quotaResource, "resource-type", "r", "", "the name of the resource type")
	setQuota.Flags().StringVarP(&quotaValue, "quota", "q", "", "the new quota value, with an optional K, M, G or T suffix")
	_ = setQuota.MarkFlagRequired("user")
	_ = setQuota.MarkFlagRequired("resource-type")
	_ = setQuota.MarkFlagRequired("quota")

	cmd.AddCommand(get, add, setQuota)
	return cmd
}
