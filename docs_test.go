package bankcore_test

import (
	"context"
	"fmt"
	"log"

	bankcore "github.com/moltbot/bankcore"
	"github.com/moltbot/bankcore/store/memory"
)

// Example shows the basic deposit / transfer / statement flow against the
// in-memory store.
func Example() {
	ctx := context.Background()

	eng, err := bankcore.New(memory.New(), nil)
	if err != nil {
		log.Fatal(err)
	}
	if err := eng.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer eng.Stop(ctx)

	dep, err := eng.Deposit(ctx, bankcore.DepositRequest{
		PrincipalID: "agent-7",
		Amount:      5000,
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("after deposit:", dep.Balance)

	tr, err := eng.Transfer(ctx, bankcore.TransferRequest{
		FromPrincipalID: "agent-7",
		ToHandle:        "agent-9",
		Amount:          1500,
		Memo:            "job #42",
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("sender:", tr.FromBalance)
	fmt.Println("recipient:", tr.ToBalance)

	// Output:
	// after deposit: 50.00 USDC
	// sender: 35.00 USDC
	// recipient: 15.00 USDC
}

// Example_escrow locks funds, then releases them to the counterparty.
func Example_escrow() {
	ctx := context.Background()

	eng, err := bankcore.New(memory.New(), nil)
	if err != nil {
		log.Fatal(err)
	}
	if err := eng.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer eng.Stop(ctx)

	if _, err := eng.Deposit(ctx, bankcore.DepositRequest{PrincipalID: "buyer", Amount: 10000}); err != nil {
		log.Fatal(err)
	}

	es, err := eng.CreateEscrow(ctx, bankcore.EscrowRequest{
		CreatorID:          "buyer",
		CounterpartyHandle: "seller",
		Amount:             4000,
		Description:        "logo design",
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("escrow status:", es.Status)

	if _, err := eng.ReleaseEscrow(ctx, es.ID, "buyer"); err != nil {
		log.Fatal(err)
	}
	w, err := eng.Wallet(ctx, "seller")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("seller:", w.Balance)

	// Output:
	// escrow status: active
	// seller: 40.00 USDC
}
