package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-favorpay/app/mapper"
	"github.com/vibast-solutions/ms-go-favorpay/app/service"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
)

var (
	cardInput        types.CardInput
	billingInput     types.BillingInput
	forceNewCustomer bool
	freshList        bool
)

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Manage saved payment methods",
}

var cardsAddCmd = &cobra.Command{
	Use:          "add",
	Short:        "Verify a card with Stripe and save it",
	SilenceUsage: true,
	RunE: func(_ *cobra.Command, _ []string) error {
		a, cleanup := mustCreateApp(nil)
		defer cleanup()

		result, err := a.paymentMethodService.SetupPaymentMethod(context.Background(), service.SetupRequest{
			Card:             cardInput,
			Billing:          billingInput,
			ForceNewCustomer: forceNewCustomer,
		})
		if err != nil {
			return displayError(err)
		}
		return printJSON(mapper.SetupResultToResponse(
			&result.PaymentMethod,
			result.IsDefault,
			result.SetupIntentID,
			!result.MerchantAccount.OK(),
		))
	},
}

var cardsListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List saved payment methods",
	SilenceUsage: true,
	RunE: func(_ *cobra.Command, _ []string) error {
		a, cleanup := mustCreateApp(nil)
		defer cleanup()

		list, err := a.paymentMethodService.ListPaymentMethods(context.Background(), freshList)
		if err != nil {
			return displayError(err)
		}
		return printJSON(mapper.PaymentMethodListToResponse(list))
	},
}

var cardsDeleteCmd = &cobra.Command{
	Use:          "delete <payment-method-id>",
	Short:        "Delete a saved payment method",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(_ *cobra.Command, args []string) error {
		a, cleanup := mustCreateApp(nil)
		defer cleanup()

		result, err := a.paymentMethodService.DeletePaymentMethod(context.Background(), args[0])
		if err != nil {
			return displayError(err)
		}
		return printJSON(&types.DeletePaymentMethodResponse{
			DeletedPaymentMethodID: result.DeletedID,
			AlreadyDeleted:         result.AlreadyDeleted,
		})
	},
}

func init() {
	rootCmd.AddCommand(cardsCmd)
	cardsCmd.AddCommand(cardsAddCmd, cardsListCmd, cardsDeleteCmd)

	flags := cardsAddCmd.Flags()
	flags.StringVar(&cardInput.Number, "number", "", "Card number")
	flags.IntVar(&cardInput.ExpMonth, "exp-month", 0, "Expiry month (1-12)")
	flags.IntVar(&cardInput.ExpYear, "exp-year", 0, "Expiry year")
	flags.StringVar(&cardInput.CVC, "cvc", "", "Security code")
	flags.StringVar(&cardInput.CardholderName, "name", "", "Cardholder name")
	flags.StringVar(&billingInput.Country, "country", "US", "Billing country (ISO 3166 alpha-2)")
	flags.StringVar(&billingInput.PostalCode, "postal-code", "", "Billing postal code")
	flags.StringVar(&billingInput.Email, "email", "", "Billing email")
	flags.BoolVar(&forceNewCustomer, "force-new-customer", false, "Ask the server for a new Stripe customer")
	for _, name := range []string{"number", "exp-month", "exp-year", "cvc", "name", "postal-code"} {
		_ = cardsAddCmd.MarkFlagRequired(name)
	}

	cardsListCmd.Flags().BoolVar(&freshList, "fresh", false, "Bypass the payment method cache")
}

// displayError turns err into the message a user should see.
func displayError(err error) error {
	return errors.New(service.DisplayMessage(err))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
