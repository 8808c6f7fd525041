package exchange

import (
	"bytes"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/Lafeng/keyx/crypto"
	log "github.com/Lafeng/keyx/glog"
	"github.com/go-ini/ini"
	"github.com/kardianos/osext"
)

const (
	CF_INITIATOR = "keyx.Initiator"
	CF_RESPONDER = "keyx.Responder"
	CF_TRANSPORT = "Transport"

	CONFIG_NAME = "keyx.ini"
)

type Role uint32

const (
	ROLE_AUTO      Role = ^Role(0)
	ROLE_INITIATOR Role = 0x0f
	ROLE_RESPONDER Role = 0xf0
)

func (r Role) String() string {
	switch r {
	case ROLE_INITIATOR:
		return "Initiator"
	case ROLE_RESPONDER:
		return "Responder"
	}
	return "Auto"
}

// FileStem names the artifacts of a role: server.* or client.*
func (r Role) FileStem() string {
	if r == ROLE_RESPONDER {
		return "server"
	}
	return "client"
}

func (r Role) section() string {
	if r == ROLE_RESPONDER {
		return CF_RESPONDER
	}
	return CF_INITIATOR
}

type ConfigContext struct {
	filepath    string
	iniInstance *ini.File
	conf        *Config
}

// LoadConfig finds the config file in the typical paths unless one is
// specified. No file found means built-in defaults; a specified file must
// exist.
func LoadConfig(specifiedFile string) (*ConfigContext, error) {
	var paths []string
	if specifiedFile == NULL {
		paths = []string{CONFIG_NAME} // cwd
		var ef, home string
		var err error
		// same path with exe
		ef, err = osext.ExecutableFolder()
		if err == nil {
			paths = append(paths, filepath.Join(ef, CONFIG_NAME))
		}
		// home
		if u, err := user.Current(); err == nil {
			home = u.HomeDir
		} else {
			home = os.Getenv("HOME")
		}
		if home != NULL {
			paths = append(paths, filepath.Join(home, CONFIG_NAME))
		}
		// etc
		if runtime.GOOS != "windows" {
			paths = append(paths, "/etc/keyx/"+CONFIG_NAME)
		}
	} else {
		if IsNotExist(specifiedFile) {
			return nil, CONF_MISS.Apply("file not found " + specifiedFile)
		}
		paths = []string{specifiedFile}
	}

	var cc = new(ConfigContext)
	for _, f := range paths {
		if f != NULL && !IsNotExist(f) {
			cc.filepath = f
			break
		}
	}
	if cc.filepath == NULL {
		if log.V(log.LV_CONFIG) {
			log.Infof("No %s in [ %s ], using defaults\n", CONFIG_NAME, strings.Join(paths, "; "))
		}
		return cc, nil
	}

	var err error
	cc.iniInstance, err = ini.Load(cc.filepath)
	if err != nil {
		return nil, CONF_ERROR.Apply(err)
	}
	if log.V(log.LV_CONFIG) {
		log.Infoln("Loaded config", cc.filepath)
	}
	return cc, nil
}

// Initialize maps the role section onto a Config carrying defaults.
// Without a file the expected role is taken as is.
func (cc *ConfigContext) Initialize(expectedRole Role) (role Role, err error) {
	cc.conf = NewConfig()
	if cc.iniInstance == nil {
		if expectedRole == ROLE_AUTO {
			return 0, CONF_MISS.Apply("role, no config file found")
		}
		cc.conf.role = expectedRole
		return expectedRole, nil
	}

	var sec *ini.Section
	if sec, err = cc.iniInstance.GetSection(CF_INITIATOR); err == nil {
		role = ROLE_INITIATOR
	} else if sec, err = cc.iniInstance.GetSection(CF_RESPONDER); err == nil {
		role = ROLE_RESPONDER
	} else {
		return 0, CONF_MISS.Apply("section [" + CF_RESPONDER + "] or [" + CF_INITIATOR + "]")
	}
	if expectedRole != ROLE_AUTO && role != expectedRole {
		return 0, UNEXPECTED_ROLE.Apply(role)
	}
	if err = sec.MapTo(cc.conf); err != nil {
		return 0, CONF_ERROR.Apply(err)
	}
	cc.conf.role = role
	cc.iniInstance = nil
	return role, nil
}

func (cc *ConfigContext) Config() *Config {
	return cc.conf
}

func (cc *ConfigContext) FilePath() string {
	return cc.filepath
}

// Info describes the resolved configuration and the parameters in use.
func (cc *ConfigContext) Info() string {
	var buf = new(bytes.Buffer)
	var c = cc.conf
	if cc.filepath != NULL {
		fmt.Fprintln(buf, "Config in", cc.filepath)
	} else {
		fmt.Fprintln(buf, "Config: built-in defaults")
	}
	fmt.Fprintln(buf, "         role:", c.role)
	fmt.Fprintln(buf, "       method:", c.method.Name())
	if curve := c.method.Curve(); curve != nil {
		params := curve.Params()
		fmt.Fprintf(buf, "            p: %x\n", params.P)
		fmt.Fprintf(buf, "            n: %x\n", params.N)
	} else {
		group := c.method.Group()
		fmt.Fprintf(buf, "        prime: %d bits, g=%s\n", group.P.BitLen(), group.G)
	}
	fmt.Fprintln(buf, "     key size:", c.method.PubKeySize(), "bytes")
	fmt.Fprintln(buf, "    transport:", c.transport)
	fmt.Fprintln(buf, "      timeout:", c.timeout)
	fmt.Fprintln(buf, "       output:", c.OutputDir)
	fmt.Fprintln(buf, "validate peer:", c.ValidatePeer)
	return buf.String()
}

// Config of one exchange, fields map to the role section.
type Config struct {
	Host         string `importable:"localhost"`
	Port         int    `importable:"12345"`
	Variant      string `importable:"ECDH"`
	Curve        string `importable:"P-256"`
	Group        int    `importable:"16"`
	Transport    string `importable:"tcp"`
	Timeout      string `importable:"0"`
	OutputDir    string `importable:"."`
	Verbose      int    `importable:"1"`
	ValidatePeer bool   `importable:"false"`

	role      Role           `ini:"-"`
	method    *crypto.Method `ini:"-"`
	transport *Transport     `ini:"-"`
	timeout   time.Duration  `ini:"-"`
}

func NewConfig() *Config {
	var c = new(Config)
	setFieldsDefaultValue(c)
	return c
}

// Validate resolves the method, transport and timeout.
func (c *Config) Validate() (err error) {
	if c.role != ROLE_INITIATOR && c.role != ROLE_RESPONDER {
		return CONF_MISS.Apply("role")
	}
	if c.Host == NULL {
		return CONF_MISS.Apply("Host")
	}
	if IsValidHost(c.Host) != nil {
		return CONF_ERROR.Apply("Host=" + c.Host)
	}

	switch strings.ToUpper(c.Variant) {
	case "ECDH", "EC":
		curve, err := crypto.CurveByName(c.Curve)
		if err != nil {
			return err
		}
		c.method = crypto.NewECMethod(curve)
	case "DH":
		group, err := crypto.GetGroup(c.Group)
		if err != nil {
			return err
		}
		c.method = crypto.NewDHMethod(group)
	default:
		return CONF_ERROR.Apply("Variant=" + c.Variant)
	}

	if c.timeout, err = parseTimeout(c.Timeout); err != nil {
		return CONF_ERROR.Apply("Timeout=" + c.Timeout)
	}
	c.transport, err = NewTransport(c.Transport, c.Host, c.Port, c.role == ROLE_RESPONDER)
	if err != nil {
		return err
	}
	// the effective port, the URL may carry its own
	if p := c.transport.port; p < MIN_PORT || p > MAX_PORT {
		return CONF_ERROR.Apply(fmt.Sprintf("Port=%d not in [%d, %d]", p, MIN_PORT, MAX_PORT))
	}
	if c.OutputDir == NULL {
		c.OutputDir = "."
	}
	return nil
}

// duration text, or a plain number of seconds
func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == NULL {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, strconv.ErrRange
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err == nil && d < 0 {
		err = strconv.ErrRange
	}
	return d, err
}

func (c *Config) Role() Role {
	return c.role
}

func (c *Config) SetRole(r Role) {
	c.role = r
}

func (c *Config) Method() *crypto.Method {
	return c.method
}

func (c *Config) GetTransport() *Transport {
	return c.transport
}

func (c *Config) TimeoutDuration() time.Duration {
	return c.timeout
}

// CreateConfigTemplate writes a commented config for role to file, or to
// stdout when file is empty.
func CreateConfigTemplate(file string, role Role) (err error) {
	var f *os.File
	if file == NULL {
		f = os.Stdout
	} else {
		f, err = os.OpenFile(file, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
		if err != nil {
			return
		}
		defer f.Close()
	}
	defer f.Sync()

	var conf = NewConfig()
	var iniInst = ini.Empty(ini.LoadOptions{})
	sec, _ := iniInst.NewSection(role.section())
	sec.Comment = strings.TrimSpace(_CONF_HEADER)
	if err = sec.ReflectFrom(conf); err != nil {
		return
	}
	sec.Key("Variant").Comment = "DH or ECDH"
	sec.Key("Curve").Comment = "ECDH only: P-256 or secp256k1"
	sec.Key("Group").Comment = "DH only: RFC 3526 group 14 (2048 bits) or 16 (4096 bits)"
	sec.Key(CF_TRANSPORT).Comment = "tcp, or kcp://:PORT/fast for the udp based kcp"
	sec.Key("Timeout").Comment = "read/write deadline like 30s, 0 blocks forever"
	sec.Key("ValidatePeer").Comment = "reject peer keys off the curve or out of [2, p-2]"
	_, err = iniInst.WriteTo(f)
	return
}

func setFieldsDefaultValue(str interface{}) {
	typ := reflect.TypeOf(str)
	val := reflect.ValueOf(str)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
		val = val.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		ft := typ.Field(i)
		fv := val.Field(i)
		imp := ft.Tag.Get("importable")
		if !ft.Anonymous && imp != NULL {
			k := fv.Kind()
			switch k {
			case reflect.String:
				fv.SetString(imp)
			case reflect.Int:
				intVal, err := strconv.ParseInt(imp, 10, 0)
				if err == nil {
					fv.SetInt(intVal)
				}
			case reflect.Bool:
				boolVal, err := strconv.ParseBool(imp)
				if err == nil {
					fv.SetBool(boolVal)
				}
			default:
				panic(fmt.Errorf("unsupported %v", k))
			}
		}
	}
}

const _CONF_HEADER = `
# -------------------------------------------------
#   keyx configuration
#   one key exchange per run, see "keyx help"
# -------------------------------------------------
`
