package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"frsm/internal/adapters/storage/uow"
	"frsm/internal/application/orchestrators"
	"frsm/internal/domain/account"
)

// InitUserCommands registers create-user.
func InitUserCommands(rootCmd *cobra.Command) {
	createCmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a login; user accounts also get an approved volunteer profile",
		Args:  cobra.NoArgs,
		RunE:  runCreateUser,
	}
	createCmd.Flags().String("email", "", "login e-mail (required)")
	createCmd.Flags().String("password", "", "initial password (required)")
	createCmd.Flags().String("role", account.RoleUser, "admin, employee or user")
	createCmd.Flags().String("first-name", "", "first name")
	createCmd.Flags().String("last-name", "", "last name")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(createCmd)
}

func runCreateUser(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	var input orchestrators.CreateAccountInput
	input.Email, _ = flags.GetString("email")
	input.Password, _ = flags.GetString("password")
	input.Role, _ = flags.GetString("role")
	input.FirstName, _ = flags.GetString("first-name")
	input.LastName, _ = flags.GetString("last-name")
	if !account.IsValidRole(input.Role) {
		return fmt.Errorf("unknown role %q", input.Role)
	}

	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := orchestrators.ExecuteCreateAccount(cmd.Context(), input, orchestrators.CreateAccountDeps{
		RunInTx:    uow.Runner(db),
		GenerateID: generateID,
		Now:        now,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s account %s (%s)\n", input.Role, input.Email, id)
	return nil
}
