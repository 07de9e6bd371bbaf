package testfixtures

import _ "time/tzdata"
