package voiceflow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/voiceflow"
	"github.com/aretw0/voiceflow/pkg/adapters/memory"
	"github.com/aretw0/voiceflow/pkg/dsl"
	"github.com/aretw0/voiceflow/pkg/registry"
)

// ExampleNew builds a two-node flow in code and drives a session through it.
func ExampleNew() {
	b := dsl.New("greeter")
	b.Add("start").
		Role("You are a friendly receptionist.").
		Task("Ask for the caller's name.").
		Say("Welcome!").
		Function("record_name", "Record the caller's name").
		String("name", "The caller's first name").
		Handler("record_name").
		To("goodbye")
	b.Add("goodbye").
		Task("Say goodbye using their name.").
		Function("end_conversation", "End the call").
		Stay().
		EndConversation()

	cfg, err := b.Config()
	if err != nil {
		log.Fatal(err)
	}

	reg := registry.NewRegistry()
	reg.Register("record_name", func(_ context.Context, args map[string]any) (map[string]any, error) {
		return map[string]any{"name": args["name"]}, nil
	})

	driver := memory.NewDriver()
	eng, err := voiceflow.New(
		voiceflow.WithFlowConfig(cfg),
		voiceflow.WithRegistry(reg),
		voiceflow.WithDriver(driver),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	briefing, err := eng.Start(ctx, "call-1")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("node:", briefing.NodeID, "functions:", len(briefing.Functions))

	out, err := eng.Call(ctx, "call-1", "record_name", map[string]any{"name": "Ada"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(out.Kind, "to", out.NodeID)

	out, err = eng.Call(ctx, "call-1", "end_conversation", nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(out.Kind)
	fmt.Println("spoken:", driver.Spoken("call-1"))
	fmt.Println("hung up:", driver.Terminated("call-1"))

	// Output:
	// node: start functions: 1
	// transitioned to goodbye
	// terminated
	// spoken: [Welcome!]
	// hung up: true
}
