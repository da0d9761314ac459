// Package client is a Go client for the messenger broker.
//
//	c, err := client.Dial(ctx, "localhost:5805", "worker-1")
//	if err != nil {
//		return err
//	}
//	defer c.Disconnect()
//
//	_ = c.Listen("*jobs")
//	_ = c.Publish("jobs/new", payload)
//
//	for {
//		msg, err := c.Receive(ctx)
//		if err != nil {
//			return err
//		}
//		handle(msg)
//	}
//
// A background heartbeat (DefaultHeartbeat, see WithHeartbeat) keeps quiet
// clients from hitting the broker's idle timeout; Receive hides the echoes.
package client
