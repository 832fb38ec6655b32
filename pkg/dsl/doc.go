/*
Package dsl builds voiceflow conversation graphs in Go code.

It is the programmatic counterpart of the YAML/JSON flow documents: the
builder produces the same domain.FlowConfig, so flows built here go through
the same validation as flows loaded from disk.

Example usage:

	b := dsl.New("greeter")

	b.Add("start").Initial().
		Role("You are a friendly receptionist.").
		Task("Greet the caller and ask for their name.").
		Function("record_name", "Record the caller's name").
		String("name", "The caller's first name").
		Handler("record_name").
		To("goodbye")

	b.Add("goodbye").
		Task("Say goodbye.").
		Say("Thanks for calling!").
		EndConversation()

	f, err := b.Compile(reg)
*/
package dsl
