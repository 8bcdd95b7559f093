package runner

import (
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/netdiag/pkg/version"
)

const banner = `
            __      ___          
   ____  __/ /_____/ (_)___ _____ _
  / __ \/ _ \/ __/ __  / / __ '/ __ '/
 / / / /  __/ /_/ /_/ / / /_/ / /_/ / 
/_/ /_/\___/\__/\__,_/_/\__,_/\__, /  
                             /____/   
`

// showBanner is used to show the banner to the user
func showBanner() {
	gologger.Print().Msgf("%s\n", banner)
	gologger.Print().Msgf("\t\tnetdiag %s\n\n", version.GetVersion())
}
