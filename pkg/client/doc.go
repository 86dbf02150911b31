// Package client is the Go SDK for the custody ledger API served by custodyd.
//
// Register an item, hand it on and check the chain:
//
//	c, err := client.New("http://localhost:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := c.Login(ctx, "alice", password); err != nil {
//	    log.Fatal(err)
//	}
//	res, err := c.Register(ctx, client.RegisterRequest{
//	    ID:        "EV-001",
//	    Content:   photo,
//	    Custodian: "Investigator",
//	})
//	_, err = c.Transfer(ctx, "EV-001", "Evidence Officer")
//	v, err := c.Verify(ctx)
//
// Watch streams every block appended to the ledger, starting with the
// blocks already in the chain:
//
//	err = c.Watch(ctx, func(b client.Block) error {
//	    fmt.Println(b.Index, b.EvidenceID)
//	    return nil
//	})
package client
